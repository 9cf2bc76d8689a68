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

// Package rate implements warning engine Phase 2 (§4.7): compares the
// current ring-over-ring rate of change against the historical mean rate
// over a configured window.
package rate

import "github.com/jordigilh/tunneledge/internal/domain"

// MinHistoricalMean is the floor below which the historical mean rate is
// considered trivial and the check is skipped (§4.7).
const MinHistoricalMean = 1e-9

// Check evaluates the rate-of-change tier. series holds the last
// window_size+1 historical ring values for this indicator, inclusive of
// the current ring's value as the final element. Returns (event, false)
// when fewer than 2 historical deltas are available or the historical
// mean rate is trivial.
func Check(indicatorName string, series []float64, params domain.RateParams, ringNumber int64, timestamp float64) (domain.WarningEvent, bool) {
	if len(series) < 3 {
		// Need >= 2 historical deltas plus the delta into the current
		// value: at least 3 values total.
		return domain.WarningEvent{}, false
	}

	deltas := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		deltas = append(deltas, series[i]-series[i-1])
	}

	currentRate := deltas[len(deltas)-1]
	historical := deltas[:len(deltas)-1]
	if len(historical) < 2 {
		return domain.WarningEvent{}, false
	}

	var sum float64
	for _, d := range historical {
		sum += d
	}
	historicalMean := sum / float64(len(historical))

	if abs(historicalMean) <= MinHistoricalMean {
		return domain.WarningEvent{}, false
	}

	multiplier := abs(currentRate) / abs(historicalMean)

	level, ok := classify(multiplier, params)
	if !ok {
		return domain.WarningEvent{}, false
	}

	return domain.WarningEvent{
		WarningType:    domain.WarningTypeRate,
		WarningLevel:   level,
		RingNumber:     ringNumber,
		Timestamp:      timestamp,
		IndicatorName:  indicatorName,
		IndicatorValue: series[len(series)-1],
		RateOfChange:   &currentRate,
		RateMultiplier: &multiplier,
		Status:         domain.StatusActive,
	}, true
}

func classify(multiplier float64, params domain.RateParams) (domain.Level, bool) {
	switch {
	case multiplier >= params.AlarmMultiple:
		return domain.LevelAlarm, true
	case multiplier >= params.WarningMultiple:
		return domain.LevelWarning, true
	case multiplier >= params.AttentionMultiple:
		return domain.LevelAttention, true
	default:
		return "", false
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
