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

// Package combiner implements warning engine Phase 5 (§4.7): examines all
// post-hysteresis warnings for one ring and, when the configured
// co-occurrence patterns match, emits one additional "combined" warning.
package combiner

import "github.com/jordigilh/tunneledge/internal/domain"

// TunnelingIndicators names the parameters treated as "any tunneling
// parameter" for the settlement co-occurrence rule (§4.7 Phase 5).
var TunnelingIndicators = map[string]struct{}{
	"thrust":            {},
	"torque":            {},
	"chamber_pressure":  {},
}

const settlementIndicator = "settlement_value"

// Combine applies the three co-occurrence rules in decreasing severity
// and returns the first match. The combined event carries only its own
// level; the notification router picks its channels from that level, not
// from the channels of its most severe source.
func Combine(ringNumber int64, timestamp float64, warnings []domain.WarningEvent) (domain.WarningEvent, bool) {
	alarms := filterLevel(warnings, domain.LevelAlarm)
	warns := filterLevel(warnings, domain.LevelWarning)

	if len(alarms) >= 2 {
		return build(ringNumber, timestamp, domain.LevelAlarm, alarms), true
	}

	if hasSettlementTunnelingCoOccurrence(alarms, warns) {
		return build(ringNumber, timestamp, domain.LevelAlarm, append(append([]domain.WarningEvent{}, alarms...), warns...)), true
	}

	if len(warns) >= 3 {
		return build(ringNumber, timestamp, domain.LevelWarning, warns), true
	}

	return domain.WarningEvent{}, false
}

func hasSettlementTunnelingCoOccurrence(alarms, warns []domain.WarningEvent) bool {
	settlementFiring := false
	tunnelingFiring := false
	for _, w := range append(append([]domain.WarningEvent{}, alarms...), warns...) {
		if w.IndicatorName == settlementIndicator {
			settlementFiring = true
		}
		if _, ok := TunnelingIndicators[w.IndicatorName]; ok {
			tunnelingFiring = true
		}
	}
	if !settlementFiring || !tunnelingFiring {
		return false
	}
	return len(alarms) >= 1 || len(warns) >= 2
}

func filterLevel(warnings []domain.WarningEvent, level domain.Level) []domain.WarningEvent {
	var out []domain.WarningEvent
	for _, w := range warnings {
		if w.WarningLevel == level {
			out = append(out, w)
		}
	}
	return out
}

func build(ringNumber int64, timestamp float64, level domain.Level, sources []domain.WarningEvent) domain.WarningEvent {
	names := make([]string, 0, len(sources))
	mostSevere := sources[0]
	for _, s := range sources {
		names = append(names, s.IndicatorName)
		if s.WarningLevel.MoreSevereThan(mostSevere.WarningLevel) {
			mostSevere = s
		}
	}

	return domain.WarningEvent{
		WarningType:        domain.WarningTypeCombined,
		WarningLevel:       level,
		RingNumber:         ringNumber,
		Timestamp:          timestamp,
		IndicatorName:      "combined",
		CombinedIndicators: names,
		Status:             domain.StatusActive,
	}
}

// MostSevereSource returns the most severe of the combined event's
// contributing sources. No code path in the service calls it.
func MostSevereSource(sources []domain.WarningEvent) domain.WarningEvent {
	mostSevere := sources[0]
	for _, s := range sources {
		if s.WarningLevel.MoreSevereThan(mostSevere.WarningLevel) {
			mostSevere = s
		}
	}
	return mostSevere
}
