package threshold_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/quality/threshold"
)

func TestThreshold(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Threshold Validator Suite")
}

var _ = Describe("Validator", func() {
	var v *threshold.Validator

	BeforeEach(func() {
		v = threshold.New(map[string]threshold.Bounds{
			"thrust": {Min: 0, Max: 50000},
		})
	})

	It("passes a value within configured bounds", func() {
		valid, reason := v.Validate("thrust", 25000)
		Expect(valid).To(BeTrue())
		Expect(reason).To(BeEmpty())
	})

	It("rejects a value below the minimum", func() {
		valid, reason := v.Validate("thrust", -1)
		Expect(valid).To(BeFalse())
		Expect(reason).To(Equal("below_minimum"))
	})

	It("rejects a value above the maximum", func() {
		valid, reason := v.Validate("thrust", 60000)
		Expect(valid).To(BeFalse())
		Expect(reason).To(Equal("above_maximum"))
	})

	It("rejects NaN regardless of configuration", func() {
		valid, reason := v.Validate("thrust", math.NaN())
		Expect(valid).To(BeFalse())
		Expect(reason).To(Equal("not_a_number"))
	})

	It("rejects infinities regardless of configuration", func() {
		valid, _ := v.Validate("thrust", math.Inf(1))
		Expect(valid).To(BeFalse())
	})

	It("passes through a tag with no configured bounds", func() {
		valid, reason := v.Validate("unconfigured_tag", 1e9)
		Expect(valid).To(BeTrue())
		Expect(reason).To(BeEmpty())
	})

	It("still rejects NaN for an unconfigured tag", func() {
		valid, _ := v.Validate("unconfigured_tag", math.NaN())
		Expect(valid).To(BeFalse())
	})

	It("honors bounds updated via SetBounds", func() {
		v.SetBounds("torque", threshold.Bounds{Min: 0, Max: 100})
		valid, _ := v.Validate("torque", 150)
		Expect(valid).To(BeFalse())
	})
})
