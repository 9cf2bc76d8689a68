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

package domain

import "time"

// Level is a warning severity tier, ordered ATTENTION < WARNING < ALARM.
type Level string

const (
	LevelAttention Level = "ATTENTION"
	LevelWarning   Level = "WARNING"
	LevelAlarm     Level = "ALARM"
)

// levelRank gives Level a total order for escalation/de-escalation checks.
var levelRank = map[Level]int{
	LevelAttention: 1,
	LevelWarning:   2,
	LevelAlarm:     3,
}

// Rank returns the severity's ordinal rank; higher is more severe.
func (l Level) Rank() int { return levelRank[l] }

// MoreSevereThan reports whether l is a strictly higher tier than other.
func (l Level) MoreSevereThan(other Level) bool { return l.Rank() > other.Rank() }

// WarningType distinguishes the four check kinds of the warning engine.
type WarningType string

const (
	WarningTypeThreshold  WarningType = "threshold"
	WarningTypeRate       WarningType = "rate"
	WarningTypePredictive WarningType = "predictive"
	WarningTypeCombined   WarningType = "combined"
)

// ThresholdType names which bound a threshold warning violated.
type ThresholdType string

const (
	ThresholdLower ThresholdType = "lower"
	ThresholdUpper ThresholdType = "upper"
	ThresholdRange ThresholdType = "range"
)

// Status is the WarningEvent lifecycle state (§3).
type Status string

const (
	StatusActive        Status = "active"
	StatusAcknowledged  Status = "acknowledged"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// CanTransition enforces the lifecycle state machine:
// active -> acknowledged -> resolved; active -> resolved directly;
// active -> false_positive. acknowledged may only move to resolved, and
// resolved/false_positive are terminal and reject further transitions.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusActive:
		return to == StatusAcknowledged || to == StatusResolved || to == StatusFalsePositive
	case StatusAcknowledged:
		return to == StatusResolved
	default:
		return false
	}
}

// Tier holds the lower/upper bounds configured for one severity level of a
// WarningThreshold.
type Tier struct {
	Lower *float64
	Upper *float64
}

// RateParams configures the rate-of-change check (§4.7 Phase 2).
type RateParams struct {
	WindowSize        int
	AttentionMultiple float64
	WarningMultiple   float64
	AlarmMultiple     float64
}

// PredictiveParams configures the predictive check (§4.7 Phase 3).
type PredictiveParams struct {
	Enabled            bool
	HorizonHours       float64
	ThresholdPercent   float64
	MinConfidence      float64
}

// Hysteresis configures same-severity suppression (§4.7 Phase 4).
type Hysteresis struct {
	Percentage        float64
	MinDurationSeconds float64
}

// WarningThreshold is the durable configuration scoped to
// (indicator_name, geological_zone) with zone "all" as wildcard (§3).
type WarningThreshold struct {
	IndicatorName  string
	GeologicalZone string // "all" is the wildcard

	Attention Tier
	Warning   Tier
	Alarm     Tier

	Rate       RateParams
	Predictive PredictiveParams
	Hysteresis Hysteresis

	Channels map[Level][]string
}

// EnvelopeValid returns true when attention ⊆ warning ⊆ alarm interval
// containment holds for whichever bounds are configured, per the
// WarningThreshold invariant in §3.
func (t WarningThreshold) EnvelopeValid() bool {
	contains := func(outer, inner Tier) bool {
		if inner.Lower != nil {
			if outer.Lower != nil && *inner.Lower < *outer.Lower {
				return false
			}
		}
		if inner.Upper != nil {
			if outer.Upper != nil && *inner.Upper > *outer.Upper {
				return false
			}
		}
		return true
	}
	return contains(t.Warning, t.Attention) && contains(t.Alarm, t.Warning)
}

// WarningEvent is the durable, append-mostly event the engine emits (§3).
type WarningEvent struct {
	WarningID    string      `json:"warning_id"`
	WarningType  WarningType `json:"warning_type"`
	WarningLevel Level       `json:"warning_level"`
	RingNumber   int64       `json:"ring_number"`
	Timestamp    float64     `json:"timestamp"`

	IndicatorName  string        `json:"indicator_name"` // "combined" for combined warnings
	IndicatorValue float64       `json:"indicator_value"`
	ThresholdValue float64       `json:"threshold_value"`
	ThresholdType  ThresholdType `json:"threshold_type"`

	RateOfChange   *float64 `json:"rate_of_change,omitempty"`
	RateMultiplier *float64 `json:"rate_multiplier,omitempty"`

	PredictedValue         *float64 `json:"predicted_value,omitempty"`
	PredictionConfidence   *float64 `json:"prediction_confidence,omitempty"`
	PredictionHorizonHours *float64 `json:"prediction_horizon_hours,omitempty"`

	CombinedIndicators []string `json:"combined_indicators,omitempty"`

	Status Status `json:"status"`

	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// WorkOrderPriority maps 1:1 from warning severity (§4.9).
type WorkOrderPriority string

const (
	PriorityCritical WorkOrderPriority = "critical"
	PriorityHigh     WorkOrderPriority = "high"
	PriorityMedium   WorkOrderPriority = "medium"
)

// PriorityForLevel implements the severity-to-priority mapping in §4.9.
func PriorityForLevel(l Level) WorkOrderPriority {
	switch l {
	case LevelAlarm:
		return PriorityCritical
	case LevelWarning:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// WorkOrderStatus is the work order lifecycle state.
type WorkOrderStatus string

const (
	WorkOrderPending    WorkOrderStatus = "pending"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
)

// WorkOrder is the deterministic translation of a warning into actionable
// maintenance/verification work (§3, §4.9).
type WorkOrder struct {
	WorkOrderID string            `json:"work_order_id"`
	WarningID   string            `json:"warning_id"`
	Category    string            `json:"category"`
	Priority    WorkOrderPriority `json:"priority"`
	Status      WorkOrderStatus   `json:"status"`

	VerificationRequired  bool   `json:"verification_required"`
	VerificationRingCount int    `json:"verification_ring_count"`
	VerifiedAtRing        *int64 `json:"verified_at_ring,omitempty"`

	SyncedToCloud bool      `json:"synced_to_cloud"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
