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

// Package summary implements the ring summary writer (§4.6): it derives
// the data-completeness flag from a fixed list of critical features and
// upserts one RingSummary per ring_number, idempotently.
package summary

import (
	"context"
	"time"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// CriticalFeatures is the fixed list of indicators whose non-null fraction
// determines a ring's completeness flag (§4.6). Chosen as the six derived
// engineering indicators plus the settlement value, since these are the figures downstream warning/work-order decisions
// depend on most directly.
var CriticalFeatures = []string{
	"specific_energy",
	"ground_loss_rate",
	"volume_loss_ratio",
	"torque_thrust_ratio",
	"penetration_efficiency",
	"power_efficiency",
	"settlement_value",
}

// Completeness derives the data_completeness_flag from how many of
// CriticalFeatures are non-null in the given summary (§4.6):
// complete >= 90%, partial >= 60%, else incomplete.
func Completeness(s domain.RingSummary) domain.Completeness {
	total := len(CriticalFeatures)
	nonNull := 0

	values := []*float64{
		s.Indicators.SpecificEnergy,
		s.Indicators.GroundLossRate,
		s.Indicators.VolumeLossRatio,
		s.Indicators.TorqueThrustRatio,
		s.Indicators.PenetrationEfficiency,
		s.Indicators.PowerEfficiency,
		s.Settlement.Value,
	}
	for _, v := range values {
		if v != nil {
			nonNull++
		}
	}

	fraction := float64(nonNull) / float64(total)
	switch {
	case fraction >= 0.90:
		return domain.CompletenessComplete
	case fraction >= 0.60:
		return domain.CompletenessPartial
	default:
		return domain.CompletenessIncomplete
	}
}

// Repository is the storage dependency the writer upserts through.
type Repository interface {
	UpsertRingSummary(ctx context.Context, s domain.RingSummary) error
}

// Clock returns the current time; overridden in tests to keep CreatedAt
// deterministic.
type Clock func() time.Time

// Writer upserts RingSummary rows, filling in the completeness flag and
// timestamps.
type Writer struct {
	repo  Repository
	clock Clock
}

// New builds a Writer. A nil clock defaults to time.Now.
func New(repo Repository, clock Clock) *Writer {
	if clock == nil {
		clock = time.Now
	}
	return &Writer{repo: repo, clock: clock}
}

// Write computes the completeness flag and upserts the summary. CreatedAt
// is preserved if already set (an update of an existing ring); UpdatedAt
// always advances, satisfying the updated_at >= created_at invariant (§3).
func (w *Writer) Write(ctx context.Context, s domain.RingSummary) error {
	s.DataCompletenessFlag = Completeness(s)

	now := w.clock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	return w.repo.UpsertRingSummary(ctx, s)
}
