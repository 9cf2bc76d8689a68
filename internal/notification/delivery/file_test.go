package delivery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

func TestDelivery(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Delivery Suite")
}

var _ = Describe("FileService", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "edge-notify-")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("writes one file per message under the configured directory", func() {
		svc := delivery.NewFileDeliveryService(filepath.Join(dir, "nested"))
		msg := delivery.Message{
			Event:   domain.WarningEvent{WarningID: "w-1", WarningLevel: domain.LevelAlarm},
			Subject: "ALARM ring 12",
			Body:    "torque_thrust_ratio exceeded threshold",
		}

		Expect(svc.Deliver(context.Background(), msg)).To(Succeed())

		entries, err := os.ReadDir(filepath.Join(dir, "nested"))
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))

		content, err := os.ReadFile(filepath.Join(dir, "nested", entries[0].Name()))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("ALARM ring 12"))
		Expect(string(content)).To(ContainSubstring("torque_thrust_ratio exceeded threshold"))
	})

	It("wraps a write failure as retryable", func() {
		// Point the service at a path that collides with a regular file,
		// so MkdirAll cannot create the directory component.
		blocker := filepath.Join(dir, "blocker")
		Expect(os.WriteFile(blocker, []byte("x"), 0o644)).To(Succeed())

		svc := delivery.NewFileDeliveryService(filepath.Join(blocker, "sub"))
		err := svc.Deliver(context.Background(), delivery.Message{
			Event: domain.WarningEvent{WarningID: "w-2", WarningLevel: domain.LevelWarning},
		})

		Expect(err).To(HaveOccurred())
		var retryable *delivery.RetryableError
		Expect(errors.As(err, &retryable)).To(BeTrue())
	})
})
