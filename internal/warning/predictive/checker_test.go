package predictive_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/warning/predictive"
)

func TestPredictive(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Warning Predictive Checker Suite")
}

func f(v float64) *float64 { return &v }

var thConfig = domain.WarningThreshold{
	Attention: domain.Tier{Upper: f(1500)},
	Warning:   domain.Tier{Upper: f(1800)},
	Alarm:     domain.Tier{Upper: f(2200)},
}

var enabledParams = domain.PredictiveParams{
	Enabled:          true,
	HorizonHours:     4,
	ThresholdPercent: 0.9,
	MinConfidence:    0.7,
}

var _ = Describe("Check", func() {
	It("is skipped when prediction is disabled", func() {
		_, ok := predictive.Check("thrust", predictive.Prediction{PredictedValue: 3000, Confidence: 0.9}, domain.PredictiveParams{Enabled: false}, thConfig, 1, 0)
		Expect(ok).To(BeFalse())
	})

	It("is skipped when confidence is below the configured minimum", func() {
		_, ok := predictive.Check("thrust", predictive.Prediction{PredictedValue: 3000, Confidence: 0.5}, enabledParams, thConfig, 1, 0)
		Expect(ok).To(BeFalse())
	})

	It("fires the tier directly when the point estimate crosses it", func() {
		event, ok := predictive.Check("thrust", predictive.Prediction{PredictedValue: 2300, Confidence: 0.9}, enabledParams, thConfig, 5, 1000)
		Expect(ok).To(BeTrue())
		Expect(event.WarningLevel).To(Equal(domain.LevelAlarm))
		Expect(event.WarningType).To(Equal(domain.WarningTypePredictive))
	})

	It("fires the attention tier via approach-to-threshold without crossing", func() {
		// 0.9 * 1500 = 1350, so a predicted value of 1400 approaches without crossing 1500.
		event, ok := predictive.Check("thrust", predictive.Prediction{PredictedValue: 1400, Confidence: 0.9}, enabledParams, thConfig, 1, 0)
		Expect(ok).To(BeTrue())
		Expect(event.WarningLevel).To(Equal(domain.LevelAttention))
	})

	It("downgrades one tier when only the confidence upper bound crosses", func() {
		pred := predictive.Prediction{PredictedValue: 1000, ConfidenceUpperBound: 2300, Confidence: 0.9}
		event, ok := predictive.Check("thrust", pred, enabledParams, thConfig, 1, 0)
		Expect(ok).To(BeTrue())
		Expect(event.WarningLevel).To(Equal(domain.LevelWarning)) // alarm downgraded to warning
	})

	It("produces no warning when an attention-tier upper-bound hit has nowhere to downgrade to", func() {
		pred := predictive.Prediction{PredictedValue: 1000, ConfidenceUpperBound: 1600, Confidence: 0.9}
		_, ok := predictive.Check("thrust", pred, enabledParams, thConfig, 1, 0)
		Expect(ok).To(BeFalse())
	})

	It("produces no warning when nothing crosses or approaches any tier", func() {
		pred := predictive.Prediction{PredictedValue: 500, ConfidenceUpperBound: 600, Confidence: 0.9}
		_, ok := predictive.Check("thrust", pred, enabledParams, thConfig, 1, 0)
		Expect(ok).To(BeFalse())
	})
})
