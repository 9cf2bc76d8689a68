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

// Package indicators computes the six per-ring engineering indicators
// (§4.5) from aggregated ring features. Each returns nil when a required
// input is nil, rather than propagating an error: a missing indicator is
// an expected, recorded condition, not a failure.
package indicators

import (
	"math"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// Inputs bundles the raw, pre-aggregated figures the six formulas read
// from. Any field may be nil when the underlying measurement was
// unavailable for this ring.
type Inputs struct {
	MeanPowerKW       *float64 // P̄, cutterhead+total mean power over the ring
	DurationHours     *float64
	ShieldDiameterM   *float64 // D
	RingWidthM        *float64 // w
	GroutVolumeM3     *float64
	TailVoidVolumeM3  *float64 // nil leaves GroundLoss and VolumeLossRatio nil; it is not estimated from shield geometry
	MeanTorqueNm      *float64 // τ
	MeanThrustKN      *float64 // F
	MeanPenetrationMM *float64 // v, mm/min
	CutterheadPowerKW *float64
	TotalPowerKW      *float64
}

// excavatedVolume computes V_excav = π (D/2)² w, or nil if D or w absent.
func excavatedVolume(diameterM, widthM *float64) *float64 {
	if diameterM == nil || widthM == nil {
		return nil
	}
	r := *diameterM / 2.0
	v := math.Pi * r * r * *widthM
	return &v
}

// SpecificEnergy computes specific_energy = (P̄ · duration_hours · 3.6) / V_excav
// in MJ/m³ (§4.5).
func SpecificEnergy(in Inputs) *float64 {
	if in.MeanPowerKW == nil || in.DurationHours == nil {
		return nil
	}
	vExcav := excavatedVolume(in.ShieldDiameterM, in.RingWidthM)
	if vExcav == nil || *vExcav == 0 {
		return nil
	}
	result := (*in.MeanPowerKW * *in.DurationHours * 3.6) / *vExcav
	return &result
}

// GroundLoss computes ground_loss = grout_volume - tail_void_volume (§4.5).
func GroundLoss(in Inputs) *float64 {
	if in.GroutVolumeM3 == nil || in.TailVoidVolumeM3 == nil {
		return nil
	}
	result := *in.GroutVolumeM3 - *in.TailVoidVolumeM3
	return &result
}

// VolumeLossRatio computes volume_loss_ratio = max(ground_loss, 0) / V_excav * 100 (§4.5).
func VolumeLossRatio(in Inputs) *float64 {
	groundLoss := GroundLoss(in)
	if groundLoss == nil {
		return nil
	}
	vExcav := excavatedVolume(in.ShieldDiameterM, in.RingWidthM)
	if vExcav == nil || *vExcav == 0 {
		return nil
	}
	clamped := math.Max(*groundLoss, 0)
	result := clamped / *vExcav * 100.0
	return &result
}

// TorqueThrustRatio computes τ / F when F > 0 (§4.5).
func TorqueThrustRatio(in Inputs) *float64 {
	if in.MeanTorqueNm == nil || in.MeanThrustKN == nil || *in.MeanThrustKN <= 0 {
		return nil
	}
	result := *in.MeanTorqueNm / *in.MeanThrustKN
	return &result
}

// PenetrationEfficiency computes v_m_per_min / (F · P) · 1e6 as a
// dimensionless index (§4.5).
func PenetrationEfficiency(in Inputs) *float64 {
	if in.MeanPenetrationMM == nil || in.MeanThrustKN == nil || in.MeanPowerKW == nil {
		return nil
	}
	if *in.MeanThrustKN == 0 || *in.MeanPowerKW == 0 {
		return nil
	}
	vMPerMin := *in.MeanPenetrationMM / 1000.0
	result := vMPerMin / (*in.MeanThrustKN * *in.MeanPowerKW) * 1e6
	return &result
}

// PowerEfficiency computes P_cutterhead / P_total when P_total > 0 (§4.5).
func PowerEfficiency(in Inputs) *float64 {
	if in.CutterheadPowerKW == nil || in.TotalPowerKW == nil || *in.TotalPowerKW <= 0 {
		return nil
	}
	result := *in.CutterheadPowerKW / *in.TotalPowerKW
	return &result
}

// Compute runs all six formulas and returns a domain.DerivedIndicators,
// each field independently null when its inputs are unavailable.
func Compute(in Inputs) domain.DerivedIndicators {
	return domain.DerivedIndicators{
		SpecificEnergy:        SpecificEnergy(in),
		GroundLossRate:        GroundLoss(in),
		VolumeLossRatio:       VolumeLossRatio(in),
		PenetrationEfficiency: PenetrationEfficiency(in),
		TorqueThrustRatio:     TorqueThrustRatio(in),
		PowerEfficiency:       PowerEfficiency(in),
	}
}
