package reasonableness_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/quality/reasonableness"
)

func TestReasonableness(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reasonableness Checker Suite")
}

var _ = Describe("Checker", func() {
	var c *reasonableness.Checker

	BeforeEach(func() {
		c = reasonableness.New(nil)
	})

	It("reports no failures for a fully consistent snapshot", func() {
		snap := reasonableness.Snapshot{
			ThrustKN:                 20000,
			PenetrationMMPerMin:      20,   // ratio 1000, within [100,2000]
			TorqueKNm:                2000, // ratio 0.1, within [0.01,0.15]
			ChamberPressureBar:       5,
			DepthM:                   50, // ratio 0.1, within [0.08,0.15]
			AdvanceVelocityMPerMin:   0.02,
			AngularVelocityRadPerMin: 1,
			PowerKW:                  2000*1 + 20000*0.02, // == expected exactly
		}

		Expect(c.Check(snap)).To(BeEmpty())
	})

	It("flags thrust/penetration ratio outside bounds", func() {
		snap := reasonableness.Snapshot{ThrustKN: 50, PenetrationMMPerMin: 10} // ratio 5
		failures := c.Check(snap)
		Expect(ruleNames(failures)).To(ContainElement("thrust_penetration_ratio"))
	})

	It("flags torque/thrust ratio outside bounds", func() {
		snap := reasonableness.Snapshot{ThrustKN: 1000, TorqueKNm: 900} // ratio 0.9
		failures := c.Check(snap)
		Expect(ruleNames(failures)).To(ContainElement("torque_thrust_ratio"))
	})

	It("flags chamber pressure outside bounds", func() {
		snap := reasonableness.Snapshot{ChamberPressureBar: 50, DepthM: 10} // ratio 5
		failures := c.Check(snap)
		Expect(ruleNames(failures)).To(ContainElement("chamber_pressure"))
	})

	It("flags power inconsistent with the mechanical estimate", func() {
		snap := reasonableness.Snapshot{
			ThrustKN: 20000, AdvanceVelocityMPerMin: 0.02,
			TorqueKNm: 2000, AngularVelocityRadPerMin: 1,
			PowerKW: 1, // far below expected (400+2000=2400)
		}
		failures := c.Check(snap)
		Expect(ruleNames(failures)).To(ContainElement("power_consistency"))
	})

	It("skips a rule whose required input is absent (zero)", func() {
		snap := reasonableness.Snapshot{} // everything zero
		Expect(c.Check(snap)).To(BeEmpty())
	})

	It("evaluates extra site-specific rules alongside the defaults", func() {
		c = reasonableness.New(map[string]reasonableness.Rule{
			"custom_zone_rule": func(s reasonableness.Snapshot) (bool, string) {
				return s.DepthM < 100, "depth exceeds site-specific limit"
			},
		})
		failures := c.Check(reasonableness.Snapshot{DepthM: 150})
		Expect(ruleNames(failures)).To(ContainElement("custom_zone_rule"))
	})
})

func ruleNames(failures []reasonableness.Failure) []string {
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Rule
	}
	return names
}
