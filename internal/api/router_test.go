/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/api"
	"github.com/jordigilh/tunneledge/internal/buffer"
	"github.com/jordigilh/tunneledge/internal/domain"
	apperrors "github.com/jordigilh/tunneledge/internal/errors"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
	"github.com/jordigilh/tunneledge/internal/warning/predictive"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

type fakeRings struct {
	byNumber map[int64]domain.RingSummary
	list     []domain.RingSummary
}

func (f *fakeRings) GetRingSummary(ctx context.Context, ringNumber int64) (domain.RingSummary, error) {
	s, ok := f.byNumber[ringNumber]
	if !ok {
		return domain.RingSummary{}, apperrors.NotFound("ring not found")
	}
	return s, nil
}

func (f *fakeRings) ListRingSummaries(ctx context.Context, filter postgres.RingFilter, limit, offset int) ([]domain.RingSummary, error) {
	return f.list, nil
}

func (f *fakeRings) CountRingSummaries(ctx context.Context, filter postgres.RingFilter) (int, error) {
	return len(f.list), nil
}

type fakeReadings struct{}

func (fakeReadings) PLCReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.PlcReading, error) {
	return nil, nil
}

func (fakeReadings) AttitudeReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.AttitudeReading, error) {
	return nil, nil
}

func (fakeReadings) MonitoringReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.MonitoringReading, error) {
	return nil, nil
}

type fakeWarnings struct {
	byID  map[string]domain.WarningEvent
	list  []domain.WarningEvent
	stats postgres.Stats
}

func (f *fakeWarnings) GetByID(ctx context.Context, warningID string) (domain.WarningEvent, error) {
	w, ok := f.byID[warningID]
	if !ok {
		return domain.WarningEvent{}, apperrors.NotFound("warning not found")
	}
	return w, nil
}

func (f *fakeWarnings) ListWarnings(ctx context.Context, filter postgres.WarningFilter, limit, offset int) ([]domain.WarningEvent, error) {
	return f.list, nil
}

func (f *fakeWarnings) Transition(ctx context.Context, warningID string, to domain.Status, by, notes string, at time.Time) error {
	w, ok := f.byID[warningID]
	if !ok {
		return apperrors.NotFound("warning not found")
	}
	if !w.Status.CanTransition(to) {
		return apperrors.Lifecycle("illegal transition")
	}
	w.Status = to
	f.byID[warningID] = w
	return nil
}

func (f *fakeWarnings) Stats(ctx context.Context, startTime, endTime *float64) (postgres.Stats, error) {
	return f.stats, nil
}

type fakePredictions struct {
	prediction predictive.Prediction
	ringNumber int64
	ok         bool
}

func (f *fakePredictions) LatestPrediction(ctx context.Context, indicatorName string, ringNumber int64) (predictive.Prediction, bool, error) {
	return f.prediction, f.ok, nil
}

func (f *fakePredictions) Latest(ctx context.Context, indicatorName string) (predictive.Prediction, int64, bool, error) {
	return f.prediction, f.ringNumber, f.ok, nil
}

var _ = Describe("Server", func() {
	var (
		rings       *fakeRings
		warnings    *fakeWarnings
		predictions *fakePredictions
		buf         *buffer.Writer
		server      *api.Server
	)

	BeforeEach(func() {
		rings = &fakeRings{
			byNumber: map[int64]domain.RingSummary{10: {RingNumber: 10}},
			list:     []domain.RingSummary{{RingNumber: 10}},
		}
		warnings = &fakeWarnings{
			byID: map[string]domain.WarningEvent{
				"w-1": {WarningID: "w-1", Status: domain.StatusActive},
			},
		}
		predictions = &fakePredictions{}
		buf = buffer.New(10, buffer.DropNewest, func(ctx context.Context, batches map[string][]buffer.Entry) error {
			return nil
		})
		probes := map[string]api.Prober{
			"ok": func(ctx context.Context) error { return nil },
		}
		server = api.New(rings, fakeReadings{}, warnings, predictions, buf, probes, logr.Discard())
	})

	Describe("health", func() {
		It("reports ok on the liveness probe", func() {
			rr := doRequest(server, "GET", "/health", nil)
			Expect(rr.Code).To(Equal(200))
		})

		It("reports degraded when a sub-probe fails", func() {
			probes := map[string]api.Prober{
				"db": func(ctx context.Context) error { return errors.New("unreachable") },
			}
			degraded := api.New(rings, fakeReadings{}, warnings, predictions, buf, probes, logr.Discard())
			rr := doRequest(degraded, "GET", "/health/detailed", nil)
			Expect(rr.Code).To(Equal(503))
		})
	})

	Describe("rings", func() {
		It("lists ring summaries in a paginated envelope", func() {
			rr := doRequest(server, "GET", "/api/v1/rings/", nil)
			Expect(rr.Code).To(Equal(200))
			Expect(rr.Body.String()).To(ContainSubstring(`"ring_number":10`))
			Expect(rr.Body.String()).To(ContainSubstring(`"total":1`))
			Expect(rr.Body.String()).To(ContainSubstring(`"page":1`))
			Expect(rr.Body.String()).To(ContainSubstring(`"total_pages":1`))
		})

		It("returns 404 for an unknown ring", func() {
			rr := doRequest(server, "GET", "/api/v1/rings/999", nil)
			Expect(rr.Code).To(Equal(404))
		})

		It("returns the raw per-type reading slices for a ring", func() {
			rr := doRequest(server, "GET", "/api/v1/rings/10/raw", nil)
			Expect(rr.Code).To(Equal(200))
			Expect(rr.Body.String()).To(ContainSubstring(`"ring_number":10`))
			Expect(rr.Body.String()).To(ContainSubstring(`"plc":null`))
		})
	})

	Describe("warnings lifecycle", func() {
		It("acknowledges an active warning", func() {
			rr := doRequest(server, "POST", "/api/v1/warnings/w-1/acknowledge", []byte(`{"by":"operator-1"}`))
			Expect(rr.Code).To(Equal(200))
			Expect(warnings.byID["w-1"].Status).To(Equal(domain.StatusAcknowledged))
		})

		It("rejects resolving a non-existent warning", func() {
			rr := doRequest(server, "POST", "/api/v1/warnings/missing/resolve", []byte(`{"by":"operator-1"}`))
			Expect(rr.Code).To(Equal(404))
		})

		It("rejects a malformed transition body", func() {
			rr := doRequest(server, "POST", "/api/v1/warnings/w-1/acknowledge", []byte(`{}`))
			Expect(rr.Code).To(Equal(400))
		})

		It("resolves as false_positive when mark_as_false_positive is set", func() {
			rr := doRequest(server, "POST", "/api/v1/warnings/w-1/resolve", []byte(`{"by":"operator-1","mark_as_false_positive":true}`))
			Expect(rr.Code).To(Equal(200))
			Expect(warnings.byID["w-1"].Status).To(Equal(domain.StatusFalsePositive))
		})

		It("resolves normally when mark_as_false_positive is absent", func() {
			rr := doRequest(server, "POST", "/api/v1/warnings/w-1/resolve", []byte(`{"by":"operator-1"}`))
			Expect(rr.Code).To(Equal(200))
			Expect(warnings.byID["w-1"].Status).To(Equal(domain.StatusResolved))
		})
	})

	Describe("manual logs", func() {
		It("accepts a batch of readings", func() {
			body := []byte(`{"operator":"op-1","entries":[{"kind":"plc","timestamp":1.0,"plc":{"tag_name":"advance_rate","value":12.5}}]}`)
			rr := doRequest(server, "POST", "/api/v1/logs", body)
			Expect(rr.Code).To(Equal(202))
			Expect(buf.Len()).To(Equal(1))
		})

		It("rejects a batch with no entries", func() {
			rr := doRequest(server, "POST", "/api/v1/logs", []byte(`{"operator":"op-1","entries":[]}`))
			Expect(rr.Code).To(Equal(400))
		})
	})
})
