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

var _ = Describe("SlackService", func() {
	It("posts an attachment colored by warning level", func() {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		svc := delivery.NewSlackService(server.URL)
		err := svc.Deliver(context.Background(), delivery.Message{
			Event:   domain.WarningEvent{WarningLevel: domain.LevelAlarm},
			Subject: "ALARM ring 3",
			Body:    "penetration_efficiency below floor",
		})

		Expect(err).NotTo(HaveOccurred())
		attachments, ok := captured["attachments"].([]interface{})
		Expect(ok).To(BeTrue())
		Expect(attachments).To(HaveLen(1))
		attachment := attachments[0].(map[string]interface{})
		Expect(attachment["color"]).To(Equal("danger"))
		Expect(attachment["title"]).To(Equal("ALARM ring 3"))
	})

	It("treats a non-ok webhook response as retryable", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("invalid_payload"))
		}))
		defer server.Close()

		svc := delivery.NewSlackService(server.URL)
		err := svc.Deliver(context.Background(), delivery.Message{
			Event: domain.WarningEvent{WarningLevel: domain.LevelWarning},
		})

		Expect(err).To(HaveOccurred())
		var retryable *delivery.RetryableError
		Expect(errors.As(err, &retryable)).To(BeTrue())
	})
})
