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

// Package calibrate implements the third quality pipeline stage (§4.2):
// per-tag linear, polynomial, or lookup-table calibration transforms.
package calibrate

import "sort"

// Kind names the calibration transform shape.
type Kind string

const (
	KindLinear     Kind = "linear"
	KindPolynomial Kind = "polynomial"
	KindLookup     Kind = "lookup"
)

// Knot is one (raw, calibrated) point of a lookup table calibration.
type Knot struct {
	Raw        float64
	Calibrated float64
}

// Calibration is one tag's calibration configuration.
type Calibration struct {
	Tag  string
	Kind Kind

	// Linear: y = (x + Offset) * Scale.
	Offset float64
	Scale  float64

	// Polynomial: y = sum(Coefficients[i] * x^i); order is len-1.
	Coefficients []float64

	// Lookup: piecewise-linear between Knots, sorted by Raw ascending.
	Knots []Knot

	// Optional time window; samples outside bypass calibration entirely
	// and keep their pre-calibration quality flag.
	HasWindow bool
	ValidFrom float64
	ValidUntil float64
}

// InWindow reports whether timestamp t falls inside the calibration's
// valid_from/valid_until window, or true when no window is configured.
func (c Calibration) InWindow(t float64) bool {
	if !c.HasWindow {
		return true
	}
	return t >= c.ValidFrom && t <= c.ValidUntil
}

// Calibrator applies tag-specific calibration transforms.
type Calibrator struct {
	byTag map[string]Calibration
}

// New builds a Calibrator from a set of per-tag calibrations.
func New(calibrations []Calibration) *Calibrator {
	byTag := make(map[string]Calibration, len(calibrations))
	for _, c := range calibrations {
		sorted := append([]Knot(nil), c.Knots...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Raw < sorted[j].Raw })
		c.Knots = sorted
		byTag[c.Tag] = c
	}
	return &Calibrator{byTag: byTag}
}

// Apply calibrates value for tag at timestamp t. ok is false when the tag
// has no configured calibration, or when t falls outside the
// calibration's valid window; in either case the caller should retain the
// sample's pre-calibration value and quality flag.
func (c *Calibrator) Apply(tag string, value, t float64) (calibrated float64, ok bool) {
	cal, found := c.byTag[tag]
	if !found || !cal.InWindow(t) {
		return value, false
	}

	switch cal.Kind {
	case KindLinear:
		return (value + cal.Offset) * cal.Scale, true
	case KindPolynomial:
		return evalPolynomial(cal.Coefficients, value), true
	case KindLookup:
		return evalLookup(cal.Knots, value), true
	default:
		return value, false
	}
}

func evalPolynomial(coeffs []float64, x float64) float64 {
	result := 0.0
	power := 1.0
	for _, c := range coeffs {
		result += c * power
		power *= x
	}
	return result
}

// evalLookup performs piecewise-linear interpolation between knots,
// clamping to the first/last knot when x falls outside the table's range.
func evalLookup(knots []Knot, x float64) float64 {
	if len(knots) == 0 {
		return x
	}
	if x <= knots[0].Raw {
		return knots[0].Calibrated
	}
	if x >= knots[len(knots)-1].Raw {
		return knots[len(knots)-1].Calibrated
	}
	for i := 0; i < len(knots)-1; i++ {
		a, b := knots[i], knots[i+1]
		if x >= a.Raw && x <= b.Raw {
			if b.Raw == a.Raw {
				return a.Calibrated
			}
			frac := (x - a.Raw) / (b.Raw - a.Raw)
			return a.Calibrated + frac*(b.Calibrated-a.Calibrated)
		}
	}
	return x
}
