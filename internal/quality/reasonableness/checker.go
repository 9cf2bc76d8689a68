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

// Package reasonableness implements the physics-derived, multi-tag
// snapshot checks of §4.2. Failures are reported per-rule for metrics;
// reasonableness alone never rejects a sample.
package reasonableness

// Snapshot is a concurrent multi-tag reading used to evaluate the
// physics-derived predicates together, since no single tag carries enough
// information on its own.
type Snapshot struct {
	ThrustKN            float64
	PenetrationMMPerMin float64
	TorqueKNm           float64
	ChamberPressureBar  float64
	DepthM              float64
	PowerKW             float64
	AdvanceVelocityMPerMin float64
	AngularVelocityRadPerMin float64
}

// Failure names a rule that did not hold for a Snapshot.
type Failure struct {
	Rule   string
	Reason string
}

// Rule evaluates one predicate against a Snapshot. ok=true when the rule
// does not apply (a required input was absent/zero) or the predicate held.
type Rule func(Snapshot) (ok bool, reason string)

// Checker evaluates the default rule set plus any extra Go-function rules
// supplied at construction (site-specific rules, §4.14).
type Checker struct {
	rules map[string]Rule
}

// New builds a Checker with the four documented default rules plus any
// extra named rules (site-specific reasonableness predicates).
func New(extra map[string]Rule) *Checker {
	rules := map[string]Rule{
		"thrust_penetration_ratio": thrustPenetrationRatio,
		"torque_thrust_ratio":      torqueThrustRatio,
		"chamber_pressure":         chamberPressure,
		"power_consistency":        powerConsistency,
	}
	for name, r := range extra {
		rules[name] = r
	}
	return &Checker{rules: rules}
}

// Check evaluates every configured rule and returns the ones that failed.
func (c *Checker) Check(s Snapshot) []Failure {
	var failures []Failure
	for name, rule := range c.rules {
		if ok, reason := rule(s); !ok {
			failures = append(failures, Failure{Rule: name, Reason: reason})
		}
	}
	return failures
}

func thrustPenetrationRatio(s Snapshot) (bool, string) {
	if s.PenetrationMMPerMin == 0 {
		return true, ""
	}
	ratio := s.ThrustKN / s.PenetrationMMPerMin
	if ratio < 100 || ratio > 2000 {
		return false, "thrust/penetration ratio outside [100, 2000] kN/(mm/min)"
	}
	return true, ""
}

func torqueThrustRatio(s Snapshot) (bool, string) {
	if s.ThrustKN == 0 {
		return true, ""
	}
	ratio := s.TorqueKNm / s.ThrustKN
	if ratio < 0.01 || ratio > 0.15 {
		return false, "torque/thrust ratio outside [0.01, 0.15]"
	}
	return true, ""
}

func chamberPressure(s Snapshot) (bool, string) {
	if s.DepthM == 0 {
		return true, ""
	}
	ratio := s.ChamberPressureBar / s.DepthM
	if ratio < 0.08 || ratio > 0.15 {
		return false, "chamber pressure outside [0.08, 0.15] bar/m of depth"
	}
	return true, ""
}

// powerConsistency checks that measured power is within ±50%/+200% of the
// mechanically expected power, thrust*v + torque*omega.
func powerConsistency(s Snapshot) (bool, string) {
	expected := s.ThrustKN*s.AdvanceVelocityMPerMin + s.TorqueKNm*s.AngularVelocityRadPerMin
	if expected == 0 {
		return true, ""
	}
	lower := expected * 0.5
	upper := expected * 3.0 // +200% of expected
	if s.PowerKW < lower || s.PowerKW > upper {
		return false, "power consumption inconsistent with thrust*v + torque*omega"
	}
	return true, ""
}
