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

// Package tracker implements the quality metrics tracker (§4.2): the
// single source of truth for operational quality observability. It is
// the MetricsSink of the redesign note in §9 — components report
// per-stage outcomes here rather than holding their own counters.
package tracker

import (
	"sync"

	"github.com/jordigilh/tunneledge/internal/metrics"
)

// RecordQuality is the categorical level computed for one sample's
// passage through the pipeline (§4.2).
type RecordQuality string

const (
	QualityHigh   RecordQuality = "high"
	QualityMedium RecordQuality = "medium"
	QualityLow    RecordQuality = "low"
)

// Outcome is what one sample experienced as it passed through the
// pipeline, enough information to classify its RecordQuality.
type Outcome struct {
	ValidationPassed    bool
	Interpolated        bool
	ReasonablenessPassed bool
}

// Classify implements the quality-level rule from §4.2:
//   - high:   validation and reasonableness passed and no interpolation
//   - medium: passed but contained interpolation
//   - low:    any validation or reasonableness failure
func Classify(o Outcome) RecordQuality {
	if !o.ValidationPassed || !o.ReasonablenessPassed {
		return QualityLow
	}
	if o.Interpolated {
		return QualityMedium
	}
	return QualityHigh
}

// Tracker aggregates quality pipeline outcomes per stage, tag, and rule,
// and publishes them to the process-wide Prometheus registry.
type Tracker struct {
	mu sync.Mutex

	stageFailures map[string]map[string]int // stage -> reason -> count
	tagInterps    map[string]int
	ruleFailures  map[string]int
	levelCounts   map[RecordQuality]int
}

// New builds an empty Tracker.
func New() *Tracker {
	return &Tracker{
		stageFailures: map[string]map[string]int{},
		tagInterps:    map[string]int{},
		ruleFailures:  map[string]int{},
		levelCounts:   map[RecordQuality]int{},
	}
}

// RecordValidationFailure records a threshold validator rejection.
func (t *Tracker) RecordValidationFailure(tag, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stageFailures["threshold"] == nil {
		t.stageFailures["threshold"] = map[string]int{}
	}
	t.stageFailures["threshold"][reason]++
	metrics.RecordRejection("threshold", reason)
}

// RecordInterpolation records a tag's interpolated point.
func (t *Tracker) RecordInterpolation(tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tagInterps[tag]++
	metrics.RecordInterpolated(tag)
}

// RecordReasonablenessFailure records a failed reasonableness rule.
func (t *Tracker) RecordReasonablenessFailure(rule string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ruleFailures[rule]++
	metrics.RecordReasonablenessFailure(rule)
}

// RecordOutcome classifies a sample's overall outcome and tallies it.
func (t *Tracker) RecordOutcome(o Outcome) RecordQuality {
	level := Classify(o)
	t.mu.Lock()
	t.levelCounts[level]++
	t.mu.Unlock()
	metrics.RecordRecordQuality(string(level))
	return level
}

// Snapshot is a point-in-time read of the tracker's counters, for the
// detailed health/observability surface.
type Snapshot struct {
	StageFailures map[string]map[string]int
	TagInterpolations map[string]int
	RuleFailures  map[string]int
	LevelCounts   map[RecordQuality]int
}

// Snapshot returns a deep-copied view of the tracker's current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	stageFailures := make(map[string]map[string]int, len(t.stageFailures))
	for stage, reasons := range t.stageFailures {
		copied := make(map[string]int, len(reasons))
		for k, v := range reasons {
			copied[k] = v
		}
		stageFailures[stage] = copied
	}

	tagInterps := make(map[string]int, len(t.tagInterps))
	for k, v := range t.tagInterps {
		tagInterps[k] = v
	}

	ruleFailures := make(map[string]int, len(t.ruleFailures))
	for k, v := range t.ruleFailures {
		ruleFailures[k] = v
	}

	levelCounts := make(map[RecordQuality]int, len(t.levelCounts))
	for k, v := range t.levelCounts {
		levelCounts[k] = v
	}

	return Snapshot{
		StageFailures:     stageFailures,
		TagInterpolations: tagInterps,
		RuleFailures:      ruleFailures,
		LevelCounts:       levelCounts,
	}
}
