package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/jordigilh/tunneledge/internal/errors"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Structured Errors Suite")
}

var _ = Describe("AppError", func() {
	Context("basic error creation", func() {
		It("should create error with correct properties", func() {
			err := apperrors.New(apperrors.ErrorTypeValidation, "test message")

			Expect(err.Type).To(Equal(apperrors.ErrorTypeValidation))
			Expect(err.Message).To(Equal("test message"))
			Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(err.Details).To(BeEmpty())
			Expect(err.Cause).To(BeNil())
		})

		It("should implement error interface correctly", func() {
			err := apperrors.New(apperrors.ErrorTypeValidation, "test message")
			Expect(err.Error()).To(Equal("validation: test message"))
		})

		It("should include details in error string when present", func() {
			err := apperrors.New(apperrors.ErrorTypeValidation, "test message").WithDetails("extra info")
			Expect(err.Error()).To(Equal("validation: test message (extra info)"))
		})
	})

	Context("error wrapping", func() {
		It("should wrap underlying error", func() {
			originalErr := stderrors.New("original error")
			wrappedErr := apperrors.Wrap(originalErr, apperrors.ErrorTypeDatabase, "operation failed")

			Expect(wrappedErr.Type).To(Equal(apperrors.ErrorTypeDatabase))
			Expect(wrappedErr.Message).To(Equal("operation failed"))
			Expect(wrappedErr.Cause).To(Equal(originalErr))
			Expect(wrappedErr.Unwrap()).To(Equal(originalErr))
		})

		It("should format wrapped error with arguments", func() {
			originalErr := stderrors.New("connection refused")
			wrappedErr := apperrors.Wrapf(originalErr, apperrors.ErrorTypeNetwork, "failed to connect to %s:%d", "localhost", 5432)

			Expect(wrappedErr.Message).To(Equal("failed to connect to localhost:5432"))
			Expect(wrappedErr.Cause).To(Equal(originalErr))
		})
	})

	Context("adding details", func() {
		It("should add details to existing error", func() {
			err := apperrors.New(apperrors.ErrorTypeAuth, "authentication failed")
			detailedErr := err.WithDetails("invalid token")

			Expect(detailedErr.Details).To(Equal("invalid token"))
			Expect(detailedErr).To(BeIdenticalTo(err))
		})

		It("should add formatted details", func() {
			err := apperrors.New(apperrors.ErrorTypeAuth, "authentication failed")
			detailedErr := err.WithDetailsf("user %s, attempt %d", "john", 3)

			Expect(detailedErr.Details).To(Equal("user john, attempt 3"))
		})
	})

	Describe("HTTP status code mapping", func() {
		It("should map error types to correct HTTP status codes", func() {
			testCases := []struct {
				errorType  apperrors.ErrorType
				statusCode int
			}{
				{apperrors.ErrorTypeValidation, http.StatusBadRequest},
				{apperrors.ErrorTypeAuth, http.StatusUnauthorized},
				{apperrors.ErrorTypeNotFound, http.StatusNotFound},
				{apperrors.ErrorTypeConflict, http.StatusConflict},
				{apperrors.ErrorTypeTimeout, http.StatusRequestTimeout},
				{apperrors.ErrorTypeRateLimit, http.StatusTooManyRequests},
				{apperrors.ErrorTypeDatabase, http.StatusInternalServerError},
				{apperrors.ErrorTypeNetwork, http.StatusInternalServerError},
				{apperrors.ErrorTypeInternal, http.StatusInternalServerError},
				{apperrors.ErrorTypeLifecycle, http.StatusConflict},
				{apperrors.ErrorTypeConfig, http.StatusUnprocessableEntity},
			}

			for _, tc := range testCases {
				err := apperrors.New(tc.errorType, "test message")
				Expect(err.StatusCode).To(Equal(tc.statusCode))
			}
		})
	})

	Describe("predefined constructors", func() {
		It("builds a lifecycle error for illegal transitions", func() {
			err := apperrors.Lifecycle("cannot resolve a resolved warning")
			Expect(err.Type).To(Equal(apperrors.ErrorTypeLifecycle))
			Expect(err.StatusCode).To(Equal(http.StatusConflict))
		})

		It("builds a config-missing error for the warning engine's strict case", func() {
			err := apperrors.ConfigMissing("no threshold configured for indicator")
			Expect(err.Type).To(Equal(apperrors.ErrorTypeConfig))
			Expect(err.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		})
	})
})
