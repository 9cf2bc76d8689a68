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

// Package boundary implements ring boundary detection (§4.4): three
// methods attempted in order with fallbacks, producing a validated
// [start, end] excavation window.
package boundary

import "github.com/jordigilh/tunneledge/internal/metrics"

// Method names which of the three detection strategies produced a
// boundary.
type Method string

const (
	MethodAdvanceSensor  Method = "advance_sensor"
	MethodAssemblySignal Method = "assembly_signal"
	MethodTimeFallback   Method = "time_fallback"
)

// Defaults per §4.4.
const (
	DefaultRingWidthMM       = 1500.0
	DefaultToleranceMM       = 200.0
	DefaultTypicalDurationS  = 45 * 60.0
	MinDurationSeconds       = 10 * 60.0
	MaxDurationSeconds       = 120 * 60.0
)

// Point is one (time, value) sample of the cumulative advance signal.
type Point struct {
	Time  float64
	Value float64
}

// BinaryPoint is one sample of the ring-assembly-active signal.
type BinaryPoint struct {
	Time   float64
	Active bool
}

// Result is a detected ring boundary together with the method used and
// whether it passed validation.
type Result struct {
	Start  float64
	End    float64
	Method Method
	Valid  bool
}

// DetectAdvanceSensor scans a cumulative advance series starting at
// searchFrom for the first position whose advance since the anchor
// matches ringWidthMM within ±toleranceMM. If the advance exceeds
// width+tolerance without matching, the anchor resets to that point
// (§4.4 method 1).
func DetectAdvanceSensor(series []Point, searchFrom float64, ringWidthMM, toleranceMM float64) (endTime float64, found bool) {
	var anchorValue float64
	anchored := false

	for _, p := range series {
		if p.Time < searchFrom {
			continue
		}
		if !anchored {
			anchorValue = p.Value
			anchored = true
			continue
		}

		advance := p.Value - anchorValue
		if advance >= ringWidthMM-toleranceMM && advance <= ringWidthMM+toleranceMM {
			return p.Time, true
		}
		if advance > ringWidthMM+toleranceMM {
			anchorValue = p.Value
		}
	}
	return 0, false
}

// DetectAssemblySignal finds the first rising edge (0->1) at or after
// searchFrom as the start, and the following falling edge (1->0) as the
// end (§4.4 method 2).
func DetectAssemblySignal(series []BinaryPoint, searchFrom float64) (start, end float64, found bool) {
	startFound := false
	var prevActive bool
	havePrev := false

	for _, p := range series {
		if p.Time < searchFrom {
			prevActive = p.Active
			havePrev = true
			continue
		}
		if !havePrev {
			prevActive = p.Active
			havePrev = true
			continue
		}

		if !startFound {
			if !prevActive && p.Active {
				start = p.Time
				startFound = true
			}
		} else {
			if prevActive && !p.Active {
				return start, p.Time, true
			}
		}
		prevActive = p.Active
	}
	return 0, 0, false
}

// TimeFallback computes a boundary from the previous ring's end plus a
// configured typical duration (§4.4 method 3).
func TimeFallback(previousRingEnd, typicalDurationSeconds float64) (start, end float64) {
	return previousRingEnd, previousRingEnd + typicalDurationSeconds
}

// Validate checks end > start, end <= now, and duration within
// [10min, 120min] (§4.4).
func Validate(start, end, now float64) (valid bool, reason string) {
	if end <= start {
		return false, "end_not_after_start"
	}
	if end > now {
		return false, "end_in_future"
	}
	duration := end - start
	if duration < MinDurationSeconds || duration > MaxDurationSeconds {
		return false, "duration_out_of_range"
	}
	return true, ""
}

// Detect orchestrates the three methods in order with fallbacks and
// validates the result. Validation failure still returns the computed
// pair with Valid=false (§4.4: "still returns the computed pair").
func Detect(
	advanceSeries []Point,
	assemblySeries []BinaryPoint,
	searchFrom float64,
	previousRingEnd float64,
	ringWidthMM, toleranceMM, typicalDurationSeconds, now float64,
) Result {
	var res Result

	if end, ok := DetectAdvanceSensor(advanceSeries, searchFrom, ringWidthMM, toleranceMM); ok {
		res = Result{Start: searchFrom, End: end, Method: MethodAdvanceSensor}
	} else if start, end, ok := DetectAssemblySignal(assemblySeries, searchFrom); ok {
		res = Result{Start: start, End: end, Method: MethodAssemblySignal}
	} else {
		start, end := TimeFallback(previousRingEnd, typicalDurationSeconds)
		res = Result{Start: start, End: end, Method: MethodTimeFallback}
	}

	valid, _ := Validate(res.Start, res.End, now)
	res.Valid = valid

	metrics.RecordRingBoundaryMethod(string(res.Method))
	if !valid {
		metrics.RingBoundaryInvalidTotal.Inc()
	}
	return res
}
