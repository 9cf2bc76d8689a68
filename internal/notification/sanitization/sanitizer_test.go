package sanitization_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/notification/sanitization"
)

func TestSanitizer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Sanitizer Suite")
}

var _ = Describe("SanitizeWithFallback", func() {
	var sanitizer *sanitization.Sanitizer

	BeforeEach(func() {
		sanitizer = sanitization.NewSanitizer()
	})

	It("redacts a password-shaped substring", func() {
		result, err := sanitizer.SanitizeWithFallback("password: secret123")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(ContainSubstring("***REDACTED***"))
		Expect(result).NotTo(ContainSubstring("secret123"))
	})

	It("redacts a bearer token", func() {
		result, err := sanitizer.SanitizeWithFallback("Authorization: Bearer abc.def-123")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).NotTo(ContainSubstring("abc.def-123"))
	})

	It("handles empty input", func() {
		result, err := sanitizer.SanitizeWithFallback("")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(""))
	})

	It("passes through content with nothing to redact", func() {
		result, err := sanitizer.SanitizeWithFallback("ring 42 settlement_value=45")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal("ring 42 settlement_value=45"))
	})
})

var _ = Describe("SafeFallback", func() {
	It("redacts via plain substring matching", func() {
		sanitizer := sanitization.NewSanitizer()
		result := sanitizer.SafeFallback("token: xyz secret: abc")
		Expect(result).To(ContainSubstring("[REDACTED]"))
		Expect(result).NotTo(ContainSubstring("xyz"))
	})
})
