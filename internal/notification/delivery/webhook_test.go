package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

var _ = Describe("WebhookService", func() {
	It("posts the event as JSON", func() {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		svc := delivery.NewWebhookService(server.URL)
		err := svc.Deliver(context.Background(), delivery.Message{
			Event:   domain.WarningEvent{WarningLevel: domain.LevelWarning, RingNumber: 9},
			Subject: "WARNING ring 9",
			Body:    "specific_energy trending up",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(captured["subject"]).To(Equal("WARNING ring 9"))
		Expect(captured["ring_number"]).To(Equal(float64(9)))
	})

	It("treats a 5xx response as retryable and a 4xx as permanent", func() {
		status := http.StatusServiceUnavailable
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		defer server.Close()

		svc := delivery.NewWebhookService(server.URL)

		err := svc.Deliver(context.Background(), delivery.Message{})
		Expect(err).To(HaveOccurred())
		var retryable *delivery.RetryableError
		Expect(errors.As(err, &retryable)).To(BeTrue())

		status = http.StatusBadRequest
		err = svc.Deliver(context.Background(), delivery.Message{})
		Expect(err).To(HaveOccurred())
		retryable = nil
		Expect(errors.As(err, &retryable)).To(BeFalse())
	})
})
