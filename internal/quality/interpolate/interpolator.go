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

// Package interpolate implements the series-level gap-filling stage of the
// quality pipeline (§4.2). Unlike the threshold validator and calibrator,
// it operates on a time-ordered series for one tag, not a single sample.
package interpolate

import "github.com/jordigilh/tunneledge/internal/domain"

// Point is one sample in a per-tag time series.
type Point struct {
	Time    float64
	Value   float64
	Quality domain.QualityFlag
}

// Config parameterizes gap detection and filling.
type Config struct {
	Delta        float64 // expected sampling interval
	Tolerance    float64 // slack added to Delta before a gap is declared
	MaxGapSeconds float64 // gaps beyond this are left unfilled
}

// DefaultMaxGapSeconds is the spec's default (§4.2).
const DefaultMaxGapSeconds = 5.0

// Interpolate detects gaps in a time-ordered series and fills the ones that
// fit within MaxGapSeconds with linearly interpolated points spaced at
// Delta, flagged domain.QualityInterpolated. Gaps exceeding MaxGapSeconds
// mark the trailing sample domain.QualityMissing and are left unfilled.
// Interpolation never crosses a rejected boundary: a gap adjacent to a
// domain.QualityRejected point is left untouched.
func Interpolate(series []Point, cfg Config) []Point {
	if len(series) == 0 {
		return series
	}

	out := make([]Point, 0, len(series))
	out = append(out, series[0])

	for i := 0; i < len(series)-1; i++ {
		cur := series[i]
		next := series[i+1]

		if cur.Quality == domain.QualityRejected || next.Quality == domain.QualityRejected {
			out = append(out, next)
			continue
		}

		gap := next.Time - cur.Time
		threshold := cfg.Delta + cfg.Tolerance

		if gap <= threshold {
			out = append(out, next)
			continue
		}

		if gap > cfg.MaxGapSeconds {
			missing := next
			if domain.CanTransition(missing.Quality, domain.QualityMissing) {
				missing.Quality = domain.QualityMissing
			}
			out = append(out, missing)
			continue
		}

		// Fill with linearly interpolated points at Delta spacing.
		n := int(gap / cfg.Delta)
		for k := 1; k < n; k++ {
			t := cur.Time + float64(k)*cfg.Delta
			frac := (t - cur.Time) / (next.Time - cur.Time)
			v := cur.Value + frac*(next.Value-cur.Value)
			out = append(out, Point{Time: t, Value: v, Quality: domain.QualityInterpolated})
		}
		out = append(out, next)
	}

	return out
}
