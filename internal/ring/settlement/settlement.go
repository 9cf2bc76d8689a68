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

// Package settlement implements the time-lagged settlement associator
// (§4.5): it aggregates geotechnical monitoring readings that fall within
// a lag window after a ring's excavation window into one
// SettlementAssociation.
package settlement

import (
	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/ring/aggregate"
)

// Defaults per §4.5.
const (
	DefaultLagMinHours = 6.0
	DefaultLagMaxHours = 8.0
)

// Reader fetches monitoring readings in [from, to), optionally filtered by
// sensor location, for the settlement window query.
type Reader interface {
	MonitoringReadingsInWindow(from, to float64, sensorLocations []string) ([]domain.MonitoringReading, error)
}

// LagOverride allows a specific sensor type to use a different lag window
// than the ring-wide default (§4.5 "per-sensor-type lag override").
type LagOverride struct {
	SensorType  string
	LagMinHours float64
	LagMaxHours float64
}

// Associate queries readings in [end_time + lagMin, end_time + lagMax)
// (or a per-sensor-type override window, unioned in) and aggregates them
// into a SettlementAssociation. sensorLocations may be nil to mean "all".
func Associate(
	reader Reader,
	ringEndTime float64,
	lagMinHours, lagMaxHours float64,
	sensorLocations []string,
	overrides []LagOverride,
) (domain.SettlementAssociation, error) {
	from := ringEndTime + lagMinHours*3600.0
	to := ringEndTime + lagMaxHours*3600.0

	readings, err := reader.MonitoringReadingsInWindow(from, to, sensorLocations)
	if err != nil {
		return domain.SettlementAssociation{}, err
	}

	for _, ov := range overrides {
		ovFrom := ringEndTime + ov.LagMinHours*3600.0
		ovTo := ringEndTime + ov.LagMaxHours*3600.0
		extra, err := reader.MonitoringReadingsInWindow(ovFrom, ovTo, sensorLocations)
		if err != nil {
			return domain.SettlementAssociation{}, err
		}
		for _, r := range extra {
			if r.SensorType == ov.SensorType {
				readings = append(readings, r)
			}
		}
	}

	return aggregateReadings(readings), nil
}

func aggregateReadings(readings []domain.MonitoringReading) domain.SettlementAssociation {
	var values []float64
	sensors := map[string]struct{}{}

	for _, r := range readings {
		if r.QualityFlag == domain.QualityRejected || r.QualityFlag == domain.QualityMissing {
			continue
		}
		values = append(values, r.Value)
		sensors[r.SensorLocation] = struct{}{}
	}

	stats, ok := aggregate.Linear(values)
	if !ok {
		return domain.SettlementAssociation{
			SensorCount:  len(sensors),
			ReadingCount: len(values),
		}
	}

	mean := stats.Mean
	min := stats.Min
	max := stats.Max
	stdDev := stats.StdDev

	return domain.SettlementAssociation{
		Value:        &mean,
		Min:          &min,
		Max:          &max,
		StdDev:       &stdDev,
		Median:       stats.Median,
		SensorCount:  len(sensors),
		ReadingCount: len(values),
	}
}
