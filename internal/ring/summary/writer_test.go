package summary_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/ring/summary"
)

func TestSummary(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ring Summary Writer Suite")
}

func f(v float64) *float64 { return &v }

type fakeRepo struct {
	upserted []domain.RingSummary
}

func (r *fakeRepo) UpsertRingSummary(ctx context.Context, s domain.RingSummary) error {
	r.upserted = append(r.upserted, s)
	return nil
}

var _ = Describe("Completeness", func() {
	It("is complete when >= 90% of critical features are non-null", func() {
		s := domain.RingSummary{
			Indicators: domain.DerivedIndicators{
				SpecificEnergy:        f(1),
				GroundLossRate:        f(1),
				VolumeLossRatio:       f(1),
				TorqueThrustRatio:     f(1),
				PenetrationEfficiency: f(1),
				PowerEfficiency:       f(1),
			},
			Settlement: domain.SettlementAssociation{Value: f(1)},
		}
		Expect(summary.Completeness(s)).To(Equal(domain.CompletenessComplete))
	})

	It("is partial between 60% and 90%", func() {
		s := domain.RingSummary{
			Indicators: domain.DerivedIndicators{
				SpecificEnergy:        f(1),
				GroundLossRate:        f(1),
				VolumeLossRatio:       f(1),
				TorqueThrustRatio:     f(1),
				PenetrationEfficiency: f(1),
			},
		}
		Expect(summary.Completeness(s)).To(Equal(domain.CompletenessPartial))
	})

	It("is incomplete below 60%", func() {
		s := domain.RingSummary{
			Indicators: domain.DerivedIndicators{SpecificEnergy: f(1)},
		}
		Expect(summary.Completeness(s)).To(Equal(domain.CompletenessIncomplete))
	})
})

var _ = Describe("Writer", func() {
	It("sets created_at on first write and advances updated_at, keeping updated_at >= created_at", func() {
		repo := &fakeRepo{}
		fixed := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
		w := summary.New(repo, func() time.Time { return fixed })

		err := w.Write(context.Background(), domain.RingSummary{RingNumber: 42})
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.upserted).To(HaveLen(1))
		Expect(repo.upserted[0].CreatedAt).To(Equal(fixed))
		Expect(repo.upserted[0].UpdatedAt).To(Equal(fixed))
		Expect(repo.upserted[0].UpdatedAt).To(BeTemporally(">=", repo.upserted[0].CreatedAt))
	})

	It("preserves an existing created_at on update", func() {
		repo := &fakeRepo{}
		original := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		later := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
		w := summary.New(repo, func() time.Time { return later })

		err := w.Write(context.Background(), domain.RingSummary{RingNumber: 42, CreatedAt: original})
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.upserted[0].CreatedAt).To(Equal(original))
		Expect(repo.upserted[0].UpdatedAt).To(Equal(later))
	})
})
