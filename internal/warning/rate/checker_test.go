package rate_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/warning/rate"
)

func TestRate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Warning Rate Checker Suite")
}

var params = domain.RateParams{
	WindowSize:        3,
	AttentionMultiple: 2,
	WarningMultiple:   3,
	AlarmMultiple:     5,
}

var _ = Describe("Check", func() {
	It("requires at least 2 historical deltas plus the current delta", func() {
		_, ok := rate.Check("thrust", []float64{100, 110}, params, 1, 0)
		Expect(ok).To(BeFalse())
	})

	It("skips when the historical mean rate is trivial", func() {
		series := []float64{100, 100, 100, 100}
		_, ok := rate.Check("thrust", series, params, 1, 0)
		Expect(ok).To(BeFalse())
	})

	It("fires ALARM when the current rate multiplier meets the alarm threshold", func() {
		// historical deltas: 10, 10 -> mean 10; current delta: 60 -> multiplier 6
		series := []float64{100, 110, 120, 180}
		event, ok := rate.Check("thrust", series, params, 7, 1000)
		Expect(ok).To(BeTrue())
		Expect(event.WarningLevel).To(Equal(domain.LevelAlarm))
		Expect(*event.RateMultiplier).To(BeNumerically("~", 6.0, 1e-9))
		Expect(event.RingNumber).To(Equal(int64(7)))
	})

	It("fires WARNING at a mid-range multiplier", func() {
		series := []float64{100, 110, 120, 150} // deltas 10,10,30 -> multiplier 3
		event, ok := rate.Check("thrust", series, params, 1, 0)
		Expect(ok).To(BeTrue())
		Expect(event.WarningLevel).To(Equal(domain.LevelWarning))
	})

	It("produces no warning below the attention multiplier", func() {
		series := []float64{100, 110, 120, 125} // deltas 10,10,5 -> multiplier 0.5
		_, ok := rate.Check("thrust", series, params, 1, 0)
		Expect(ok).To(BeFalse())
	})
})
