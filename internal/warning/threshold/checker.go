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

// Package threshold implements warning engine Phase 1 (§4.7): locates the
// threshold configured for an indicator and zone, and evaluates it in
// decreasing severity order so the first (most severe) hit wins.
package threshold

import "github.com/jordigilh/tunneledge/internal/domain"

// Hit is the outcome of evaluating one tier against a value.
type Hit struct {
	Level         domain.Level
	ThresholdValue float64
	ThresholdType domain.ThresholdType
}

// EvaluateTier reports whether value violates the given tier's bounds,
// and if so, which bound and its type.
func EvaluateTier(value float64, tier domain.Tier) (hit bool, boundValue float64, boundType domain.ThresholdType) {
	violatedLower := tier.Lower != nil && value <= *tier.Lower
	violatedUpper := tier.Upper != nil && value >= *tier.Upper

	switch {
	case violatedLower && violatedUpper:
		return true, *tier.Lower, domain.ThresholdRange
	case violatedLower:
		return true, *tier.Lower, domain.ThresholdLower
	case violatedUpper:
		return true, *tier.Upper, domain.ThresholdUpper
	default:
		return false, 0, ""
	}
}

// Evaluate checks ALARM, then WARNING, then ATTENTION in that order and
// returns the first tier violated (§4.7 Phase 1: "the first hit wins").
func Evaluate(value float64, th domain.WarningThreshold) (Hit, bool) {
	tiers := []struct {
		level domain.Level
		tier  domain.Tier
	}{
		{domain.LevelAlarm, th.Alarm},
		{domain.LevelWarning, th.Warning},
		{domain.LevelAttention, th.Attention},
	}
	for _, t := range tiers {
		if hit, boundValue, boundType := EvaluateTier(value, t.tier); hit {
			return Hit{Level: t.level, ThresholdValue: boundValue, ThresholdType: boundType}, true
		}
	}
	return Hit{}, false
}

// Check produces a threshold WarningEvent for indicatorName/value against
// th, or (zero, false) when no tier is violated.
func Check(indicatorName string, value float64, th domain.WarningThreshold, ringNumber int64, timestamp float64) (domain.WarningEvent, bool) {
	hit, ok := Evaluate(value, th)
	if !ok {
		return domain.WarningEvent{}, false
	}
	return domain.WarningEvent{
		WarningType:    domain.WarningTypeThreshold,
		WarningLevel:   hit.Level,
		RingNumber:     ringNumber,
		Timestamp:      timestamp,
		IndicatorName:  indicatorName,
		IndicatorValue: value,
		ThresholdValue: hit.ThresholdValue,
		ThresholdType:  hit.ThresholdType,
		Status:         domain.StatusActive,
	}, true
}

// WithinNormalRange reports whether value violates no tier at all — used
// by the hysteresis cleanup sweep (§4.7 Phase 4) to decide whether a
// stale state key may be dropped.
func WithinNormalRange(value float64, th domain.WarningThreshold) bool {
	_, hit := Evaluate(value, th)
	return !hit
}
