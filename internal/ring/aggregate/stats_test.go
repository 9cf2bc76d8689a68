package aggregate_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/ring/aggregate"
)

func TestAggregate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ring Aggregate Suite")
}

var _ = Describe("Linear", func() {
	It("computes mean, min, max, stddev, median over a sample set", func() {
		stats, ok := aggregate.Linear([]float64{1, 2, 3, 4, 5})
		Expect(ok).To(BeTrue())
		Expect(stats.Mean).To(BeNumerically("~", 3.0, 1e-9))
		Expect(stats.Min).To(Equal(1.0))
		Expect(stats.Max).To(Equal(5.0))
		Expect(*stats.Median).To(Equal(3.0))
		Expect(stats.N).To(Equal(5))
	})

	It("reports not-ok for an empty slice", func() {
		_, ok := aggregate.Linear(nil)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("CircularMeanDeg (§8 circular-mean-correctness property)", func() {
	It("averages 359° and 1° to ~0°, not ~180°", func() {
		mean, ok := aggregate.CircularMeanDeg([]float64{359, 1})
		Expect(ok).To(BeTrue())
		// mean wraps to 0 (or 360); either representation is within 0.01° of 0.
		wrapped := mean
		if wrapped > 180 {
			wrapped -= 360
		}
		Expect(wrapped).To(BeNumerically("~", 0.0, 0.01))
	})

	It("returns the plain value for a single angle", func() {
		mean, ok := aggregate.CircularMeanDeg([]float64{45})
		Expect(ok).To(BeTrue())
		Expect(mean).To(BeNumerically("~", 45.0, 1e-6))
	})
})

var _ = Describe("PLCTags", func() {
	It("excludes rejected and missing samples and aggregates per tag", func() {
		readings := []domain.PlcReading{
			{TagName: "thrust", Value: 1000, QualityFlag: domain.QualityRaw},
			{TagName: "thrust", Value: 1100, QualityFlag: domain.QualityCalibrated},
			{TagName: "thrust", Value: 9999, QualityFlag: domain.QualityRejected},
			{TagName: "torque", Value: 50, QualityFlag: domain.QualityRaw},
		}
		out := aggregate.PLCTags(readings)
		Expect(out["thrust"].N).To(Equal(2))
		Expect(out["thrust"].Mean).To(BeNumerically("~", 1050.0, 1e-9))
		Expect(out["torque"].N).To(Equal(1))
	})
})

var _ = Describe("Attitude", func() {
	It("computes circular means for angles and linear stats for deviations", func() {
		readings := []domain.AttitudeReading{
			{Pitch: 359, Roll: 0, Yaw: 10, HorizontalDeviation: 10, VerticalDeviation: 10, AxisDeviation: 10, QualityFlag: domain.QualityRaw},
			{Pitch: 1, Roll: 0, Yaw: 10, HorizontalDeviation: 20, VerticalDeviation: 20, AxisDeviation: 20, QualityFlag: domain.QualityRaw},
		}
		stats := aggregate.Attitude(readings)
		wrapped := stats.PitchMeanDeg
		if wrapped > 180 {
			wrapped -= 360
		}
		Expect(wrapped).To(BeNumerically("~", 0.0, 0.01))
		Expect(stats.Horizontal.Mean).To(BeNumerically("~", 15.0, 1e-9))
		Expect(stats.TotalN).To(Equal(2))
		Expect(stats.WithinToleranceN).To(Equal(2))
		Expect(stats.TrajectoryQuality).To(Equal("excellent"))
	})

	It("excludes rejected readings from trajectory quality", func() {
		readings := []domain.AttitudeReading{
			{Pitch: 0, Roll: 0, Yaw: 0, HorizontalDeviation: 200, VerticalDeviation: 200, AxisDeviation: 200, QualityFlag: domain.QualityRejected},
		}
		stats := aggregate.Attitude(readings)
		Expect(stats.TotalN).To(Equal(0))
		Expect(stats.TrajectoryQuality).To(Equal("poor"))
	})
})
