package delivery_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

type fakeGateway struct {
	sent []string
	err  error
}

func (g *fakeGateway) Send(ctx context.Context, to, text string) error {
	g.sent = append(g.sent, to+"|"+text)
	return g.err
}

var _ = Describe("RenderSMS", func() {
	It("formats the fixed [LEVEL] Ring N: indicator @ value (threshold) layout", func() {
		event := domain.WarningEvent{
			WarningLevel:   domain.LevelAlarm,
			RingNumber:     42,
			IndicatorName:  "torque_thrust_ratio",
			IndicatorValue: 3.25,
			ThresholdValue: 3.0,
		}
		text := delivery.RenderSMS(event)
		Expect(text).To(Equal("[ALARM] Ring 42: torque_thrust_ratio @ 3.25 (3.00)"))
	})

	It("truncates to SMSMaxLen", func() {
		event := domain.WarningEvent{
			WarningLevel:  domain.LevelWarning,
			RingNumber:    1,
			IndicatorName: strings.Repeat("x", 300),
		}
		text := delivery.RenderSMS(event)
		Expect(len(text)).To(Equal(delivery.SMSMaxLen))
	})
})

var _ = Describe("SMSService", func() {
	It("sends to every recipient configured for the event's level", func() {
		gw := &fakeGateway{}
		svc := delivery.NewSMSService(gw, map[string][]string{
			string(domain.LevelAlarm): {"+15551234567", "+15557654321"},
		})

		err := svc.Deliver(context.Background(), delivery.Message{
			Event: domain.WarningEvent{WarningLevel: domain.LevelAlarm, RingNumber: 1, IndicatorName: "ground_loss"},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(gw.sent).To(HaveLen(2))
	})

	It("sends nothing when no recipients are configured for the level", func() {
		gw := &fakeGateway{}
		svc := delivery.NewSMSService(gw, map[string][]string{})

		err := svc.Deliver(context.Background(), delivery.Message{
			Event: domain.WarningEvent{WarningLevel: domain.LevelAttention},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(gw.sent).To(BeEmpty())
	})
})

var _ = Describe("HTTPGateway", func() {
	It("posts to and text as form values and treats 5xx as retryable", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		gw := delivery.NewHTTPGateway(server.URL)
		err := gw.Send(context.Background(), "+15551234567", "test message")

		Expect(err).To(HaveOccurred())
		var retryable *delivery.RetryableError
		Expect(errors.As(err, &retryable)).To(BeTrue())
	})

	It("succeeds on a 2xx response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.FormValue("to")).To(Equal("+15551234567"))
			Expect(r.FormValue("text")).To(Equal("hello"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		gw := delivery.NewHTTPGateway(server.URL)
		Expect(gw.Send(context.Background(), "+15551234567", "hello")).To(Succeed())
	})
})
