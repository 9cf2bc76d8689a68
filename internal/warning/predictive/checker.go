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

// Package predictive implements warning engine Phase 3 (§4.7): evaluates
// a forecast's point estimate and confidence upper bound against the same
// tier bounds threshold checking uses, with approach-to-threshold logic
// and an upper-bound-only downgrade rule.
package predictive

import "github.com/jordigilh/tunneledge/internal/domain"

// Prediction is the forecast input for one indicator on one ring.
type Prediction struct {
	PredictedValue       float64 `json:"predicted_value"`
	ConfidenceUpperBound float64 `json:"confidence_upper_bound"`
	Confidence           float64 `json:"confidence"`
	HorizonHours         float64 `json:"horizon_hours"`
}

// downgrade returns the one-step-less-severe level, or ("", false) when l
// is already the least severe tier (no further downgrade possible).
func downgrade(l domain.Level) (domain.Level, bool) {
	switch l {
	case domain.LevelAlarm:
		return domain.LevelWarning, true
	case domain.LevelWarning:
		return domain.LevelAttention, true
	default:
		return "", false
	}
}

// classifyWithApproach evaluates ALARM, WARNING, ATTENTION in that order
// (first hit wins), where a tier is hit either by fully crossing its
// bound or by the value reaching thresholdPercent of the bound in the
// violating direction (§4.7 "approach-to-threshold").
func classifyWithApproach(value float64, th domain.WarningThreshold, thresholdPercent float64) (domain.Level, float64, domain.ThresholdType, bool) {
	tiers := []struct {
		level domain.Level
		tier  domain.Tier
	}{
		{domain.LevelAlarm, th.Alarm},
		{domain.LevelWarning, th.Warning},
		{domain.LevelAttention, th.Attention},
	}
	for _, t := range tiers {
		if t.tier.Upper != nil {
			approach := *t.tier.Upper * thresholdPercent
			if value >= approach {
				return t.level, *t.tier.Upper, domain.ThresholdUpper, true
			}
		}
		if t.tier.Lower != nil {
			approach := *t.tier.Lower * thresholdPercent
			if value <= approach {
				return t.level, *t.tier.Lower, domain.ThresholdLower, true
			}
		}
	}
	return "", 0, "", false
}

// Check implements the full Phase 3 decision tree. Returns (event, false)
// when prediction is disabled, confidence is below the configured
// minimum, or neither the point estimate nor the upper bound warrants a
// warning.
func Check(indicatorName string, pred Prediction, params domain.PredictiveParams, th domain.WarningThreshold, ringNumber int64, timestamp float64) (domain.WarningEvent, bool) {
	if !params.Enabled || pred.Confidence < params.MinConfidence {
		return domain.WarningEvent{}, false
	}

	thresholdPercent := params.ThresholdPercent
	if thresholdPercent == 0 {
		thresholdPercent = 1.0
	}

	if level, boundValue, boundType, ok := classifyWithApproach(pred.PredictedValue, th, thresholdPercent); ok {
		return buildEvent(indicatorName, level, boundValue, boundType, pred, ringNumber, timestamp), true
	}

	if level, boundValue, boundType, ok := classifyWithApproach(pred.ConfidenceUpperBound, th, thresholdPercent); ok {
		downgraded, canDowngrade := downgrade(level)
		if !canDowngrade {
			return domain.WarningEvent{}, false
		}
		return buildEvent(indicatorName, downgraded, boundValue, boundType, pred, ringNumber, timestamp), true
	}

	return domain.WarningEvent{}, false
}

func buildEvent(indicatorName string, level domain.Level, boundValue float64, boundType domain.ThresholdType, pred Prediction, ringNumber int64, timestamp float64) domain.WarningEvent {
	predicted := pred.PredictedValue
	confidence := pred.Confidence
	horizon := pred.HorizonHours
	return domain.WarningEvent{
		WarningType:             domain.WarningTypePredictive,
		WarningLevel:            level,
		RingNumber:              ringNumber,
		Timestamp:               timestamp,
		IndicatorName:           indicatorName,
		IndicatorValue:          pred.PredictedValue,
		ThresholdValue:          boundValue,
		ThresholdType:           boundType,
		PredictedValue:          &predicted,
		PredictionConfidence:    &confidence,
		PredictionHorizonHours:  &horizon,
		Status:                  domain.StatusActive,
	}
}
