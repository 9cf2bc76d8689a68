package settlement_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/ring/settlement"
)

func TestSettlement(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Settlement Associator Suite")
}

type fakeReader struct {
	readings []domain.MonitoringReading
	calls    [][2]float64
}

func (f *fakeReader) MonitoringReadingsInWindow(from, to float64, locations []string) ([]domain.MonitoringReading, error) {
	f.calls = append(f.calls, [2]float64{from, to})
	return f.readings, nil
}

var _ = Describe("Associate", func() {
	It("queries the default 6-8h lag window and aggregates readings", func() {
		reader := &fakeReader{
			readings: []domain.MonitoringReading{
				{SensorLocation: "S1", Value: 2.0, QualityFlag: domain.QualityRaw},
				{SensorLocation: "S2", Value: 4.0, QualityFlag: domain.QualityRaw},
			},
		}

		result, err := settlement.Associate(reader, 10000, settlement.DefaultLagMinHours, settlement.DefaultLagMaxHours, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(*result.Value).To(BeNumerically("~", 3.0, 1e-9))
		Expect(result.SensorCount).To(Equal(2))
		Expect(result.ReadingCount).To(Equal(2))

		Expect(reader.calls).To(HaveLen(1))
		Expect(reader.calls[0][0]).To(BeNumerically("~", 10000+6*3600, 1e-9))
		Expect(reader.calls[0][1]).To(BeNumerically("~", 10000+8*3600, 1e-9))
	})

	It("excludes rejected readings and returns zero counts when nothing remains", func() {
		reader := &fakeReader{
			readings: []domain.MonitoringReading{
				{SensorLocation: "S1", Value: 2.0, QualityFlag: domain.QualityRejected},
			},
		}
		result, err := settlement.Associate(reader, 10000, 6, 8, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Value).To(BeNil())
		Expect(result.ReadingCount).To(Equal(0))
	})

	It("issues an additional query per sensor-type lag override", func() {
		reader := &fakeReader{}
		_, err := settlement.Associate(reader, 0, 6, 8, nil, []settlement.LagOverride{
			{SensorType: "piezometer", LagMinHours: 12, LagMaxHours: 24},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reader.calls).To(HaveLen(2))
	})
})
