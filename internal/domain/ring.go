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

// Completeness is the categorical quality label a RingSummary carries,
// derived from the fraction of critical features that are non-null (§4.6).
type Completeness string

const (
	CompletenessComplete   Completeness = "complete"
	CompletenessPartial    Completeness = "partial"
	CompletenessIncomplete Completeness = "incomplete"
)

// Stats is the {mean, min, max, std, optional median} feature set computed
// for a tracked PLC tag, or for a linear (non-angular) attitude quantity.
type Stats struct {
	Mean   float64  `json:"mean"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	StdDev float64  `json:"std_dev"`
	Median *float64 `json:"median,omitempty"`
	N      int      `json:"n"`
}

// AttitudeStats holds the circular means of the three orientation angles
// and the linear stats of the three deviation channels, plus a trajectory
// quality bucket (§4.5).
type AttitudeStats struct {
	PitchMeanDeg float64 `json:"pitch_mean_deg"`
	RollMeanDeg  float64 `json:"roll_mean_deg"`
	YawMeanDeg   float64 `json:"yaw_mean_deg"`

	Horizontal Stats `json:"horizontal"`
	Vertical   Stats `json:"vertical"`
	Axis       Stats `json:"axis"`

	TrajectoryQuality string `json:"trajectory_quality"` // excellent | good | acceptable | poor
	WithinToleranceN  int    `json:"within_tolerance_n"`
	TotalN            int    `json:"total_n"`
}

// DerivedIndicators are the per-ring engineering indicators computed from
// aggregated features (§4.5). Each pointer is nil when an input required to
// compute it was unavailable.
type DerivedIndicators struct {
	SpecificEnergy        *float64 `json:"specific_energy,omitempty"`
	GroundLossRate        *float64 `json:"ground_loss_rate,omitempty"`
	VolumeLossRatio       *float64 `json:"volume_loss_ratio,omitempty"`
	PenetrationEfficiency *float64 `json:"penetration_efficiency,omitempty"`
	TorqueThrustRatio     *float64 `json:"torque_thrust_ratio,omitempty"`
	PowerEfficiency       *float64 `json:"power_efficiency,omitempty"`
}

// SettlementAssociation is the time-lagged geotechnical readings associated
// with a ring (§4.5's settlement associator).
type SettlementAssociation struct {
	Value        *float64 `json:"value,omitempty"` // mean, the "primary" settlement_value
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	StdDev       *float64 `json:"std_dev,omitempty"`
	Median       *float64 `json:"median,omitempty"`
	SensorCount  int      `json:"sensor_count"`
	ReadingCount int      `json:"reading_count"`
}

// RingSummary is the durable, upsertable per-ring record (§3).
type RingSummary struct {
	RingNumber int64   `json:"ring_number"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`

	PLCFeatures map[string]Stats `json:"plc_features"` // keyed by tracked tag / projected feature name
	Attitude    AttitudeStats    `json:"attitude"`
	Indicators  DerivedIndicators `json:"indicators"`
	Settlement  SettlementAssociation `json:"settlement"`

	DataCompletenessFlag Completeness `json:"data_completeness_flag"`
	GeologicalZone       *string      `json:"geological_zone,omitempty"`
	SyncedToCloud        bool         `json:"synced_to_cloud"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration returns the ring's excavation duration.
func (r RingSummary) Duration() float64 {
	return r.EndTime - r.StartTime
}
