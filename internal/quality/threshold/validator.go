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

// Package threshold implements the first quality pipeline stage (§4.2): a
// per-tag (min, max) bounds check. Missing configuration is permissive —
// a tag with no configured bounds passes through unchecked.
package threshold

import "math"

// Bounds is the (min, max) range configured for one tag.
type Bounds struct {
	Min float64
	Max float64
}

// Validator looks up bounds by tag name and validates a value against them.
type Validator struct {
	bounds map[string]Bounds
}

// New builds a Validator from a tag -> Bounds configuration map.
func New(bounds map[string]Bounds) *Validator {
	if bounds == nil {
		bounds = map[string]Bounds{}
	}
	return &Validator{bounds: bounds}
}

// Validate reports whether value is acceptable for tag, and a reason when
// it is not. A tag with no configured bounds always passes (§4.2:
// "Missing configuration is permissive").
func (v *Validator) Validate(tag string, value float64) (valid bool, reason string) {
	if math.IsNaN(value) {
		return false, "not_a_number"
	}
	if math.IsInf(value, 0) {
		return false, "infinite"
	}

	b, ok := v.bounds[tag]
	if !ok {
		return true, ""
	}
	if value < b.Min {
		return false, "below_minimum"
	}
	if value > b.Max {
		return false, "above_maximum"
	}
	return true, ""
}

// SetBounds installs or replaces the bounds for a tag.
func (v *Validator) SetBounds(tag string, b Bounds) {
	v.bounds[tag] = b
}
