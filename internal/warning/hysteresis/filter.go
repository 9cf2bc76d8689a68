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

// Package hysteresis implements warning engine Phase 4 (§4.7): same-
// severity suppression keyed by (indicator, zone), with a cleanup sweep
// that drops stale state only when the indicator has returned to its
// normal range.
package hysteresis

import (
	"math"
	"sync"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
)

// Key identifies one piece of hysteresis state.
type Key struct {
	Indicator string
	Zone      string
}

// State is what the filter remembers about the last warning passed for a
// key (§4.7 Phase 4).
type State struct {
	LastLevel     domain.Level
	LastValue     float64
	LastThreshold float64
	Timestamp     float64
}

// Filter holds per-(indicator,zone) hysteresis state, serialized behind a
// mutex (§5: "Hysteresis state updates are serialized per (indicator,
// zone) key").
type Filter struct {
	mu    sync.Mutex
	state map[Key]State
}

// New builds an empty Filter.
func New() *Filter {
	return &Filter{state: map[Key]State{}}
}

// Pass evaluates one candidate warning against the stored state for its
// key and decides whether it should be emitted. On pass, the state is
// updated to reflect the candidate.
func (f *Filter) Pass(key Key, level domain.Level, value, thresholdValue float64, percentage float64, timestamp float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, exists := f.state[key]
	var passes bool

	switch {
	case !exists:
		passes = true
	case level.MoreSevereThan(prev.LastLevel):
		passes = true
	case prev.LastLevel.MoreSevereThan(level):
		passes = true
	default: // same severity
		if prev.LastThreshold == 0 {
			passes = true
		} else {
			delta := math.Abs(value-prev.LastValue) / math.Abs(prev.LastThreshold)
			passes = delta >= percentage
		}
	}

	if passes {
		f.state[key] = State{LastLevel: level, LastValue: value, LastThreshold: thresholdValue, Timestamp: timestamp}
	} else {
		metrics.RecordSuppressed(key.Indicator)
	}
	return passes
}

// Cleanup drops state for keys not present in firedKeys when the
// indicator's current value (if known) is within normal range for its
// threshold config. Keys whose current value is unknown, or that still
// violate a tier without having fired, are preserved (§4.7 Phase 4
// cleanup sweep: "prevents silent loss during checker failures").
func (f *Filter) Cleanup(firedKeys map[Key]struct{}, currentValues map[Key]float64, thresholds map[Key]domain.WarningThreshold, withinNormalRange func(value float64, th domain.WarningThreshold) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key := range f.state {
		if _, fired := firedKeys[key]; fired {
			continue
		}
		value, haveValue := currentValues[key]
		if !haveValue {
			metrics.RecordHysteresisCleanupSkipped()
			continue
		}
		th, haveThreshold := thresholds[key]
		if !haveThreshold {
			metrics.RecordHysteresisCleanupSkipped()
			continue
		}
		if withinNormalRange(value, th) {
			delete(f.state, key)
		}
	}
}

// Snapshot returns a copy of the current state, for diagnostics/tests.
func (f *Filter) Snapshot() map[Key]State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[Key]State, len(f.state))
	for k, v := range f.state {
		out[k] = v
	}
	return out
}
