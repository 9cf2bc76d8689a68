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

// Package workorder implements the deterministic warning-to-work-order
// translator (§4.9): a per-indicator rule table decides whether a
// warning produces a work order, and a dedup set keyed by warning_id
// keeps the engine's at-most-one-emission guarantee even if a warning is
// re-dispatched.
package workorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
)

// Rule is one row of the per-(indicator, level) rule table (§4.9).
type Rule struct {
	Generate                bool
	Category                string
	VerificationRequired    bool
	VerificationRingCount   int
}

// ruleKey identifies a rule row.
type ruleKey struct {
	indicator string
	level     domain.Level
}

// DefaultRules is the per-indicator rule table. Combined warnings always
// generate a work order regardless of indicator name, since they signal
// a co-occurrence the single-indicator rules don't individually capture.
var DefaultRules = map[ruleKey]Rule{
	{"specific_energy", domain.LevelAlarm}:          {Generate: true, Category: "excavation_parameters", VerificationRequired: true, VerificationRingCount: 3},
	{"specific_energy", domain.LevelWarning}:        {Generate: true, Category: "excavation_parameters", VerificationRequired: false},
	{"ground_loss_rate", domain.LevelAlarm}:         {Generate: true, Category: "settlement_control", VerificationRequired: true, VerificationRingCount: 5},
	{"ground_loss_rate", domain.LevelWarning}:       {Generate: true, Category: "settlement_control", VerificationRequired: true, VerificationRingCount: 2},
	{"volume_loss_ratio", domain.LevelAlarm}:        {Generate: true, Category: "settlement_control", VerificationRequired: true, VerificationRingCount: 5},
	{"volume_loss_ratio", domain.LevelWarning}:      {Generate: true, Category: "settlement_control", VerificationRequired: false},
	{"torque_thrust_ratio", domain.LevelAlarm}:      {Generate: true, Category: "machine_mechanics", VerificationRequired: true, VerificationRingCount: 3},
	{"torque_thrust_ratio", domain.LevelWarning}:    {Generate: true, Category: "machine_mechanics", VerificationRequired: false},
	{"penetration_efficiency", domain.LevelAlarm}:   {Generate: true, Category: "excavation_parameters", VerificationRequired: false},
	{"penetration_efficiency", domain.LevelWarning}: {Generate: false},
	{"power_efficiency", domain.LevelAlarm}:         {Generate: true, Category: "machine_mechanics", VerificationRequired: false},
	{"power_efficiency", domain.LevelWarning}:       {Generate: false},
	{"settlement_value", domain.LevelAlarm}:         {Generate: true, Category: "settlement_control", VerificationRequired: true, VerificationRingCount: 5},
	{"settlement_value", domain.LevelWarning}:       {Generate: true, Category: "settlement_control", VerificationRequired: true, VerificationRingCount: 2},
}

// lookup resolves the rule for (indicator, level), combined warnings
// always generating a work order under the "combined_conditions"
// category regardless of which indicators co-occurred.
func lookup(indicatorName string, level domain.Level) (Rule, bool) {
	if indicatorName == string(domain.WarningTypeCombined) {
		return Rule{Generate: true, Category: "combined_conditions", VerificationRequired: true, VerificationRingCount: 3}, true
	}
	rule, ok := DefaultRules[ruleKey{indicatorName, level}]
	if !ok || !rule.Generate {
		return Rule{}, false
	}
	return rule, true
}

// Repository is the storage dependency the generator persists through.
type Repository interface {
	CreateWorkOrder(ctx context.Context, wo domain.WorkOrder) error
}

// Clock returns the current time; overridden in tests.
type Clock func() time.Time

// Generator translates warning events into work orders, at most one per
// warning_id unless Force is used.
type Generator struct {
	repo   Repository
	clock  Clock
	logger logr.Logger

	mu   sync.Mutex
	seen map[string]bool
}

// New builds a Generator. A nil clock defaults to time.Now.
func New(repo Repository, clock Clock, logger logr.Logger) *Generator {
	if clock == nil {
		clock = time.Now
	}
	return &Generator{repo: repo, clock: clock, logger: logger, seen: make(map[string]bool)}
}

// Generate evaluates each event against the rule table, persisting and
// returning the work orders it produces. Events whose warning_id was
// already seen are skipped.
func (g *Generator) Generate(ctx context.Context, events []domain.WarningEvent) ([]domain.WorkOrder, error) {
	var created []domain.WorkOrder
	for _, event := range events {
		wo, ok := g.build(event, false)
		if !ok {
			continue
		}
		if err := g.repo.CreateWorkOrder(ctx, wo); err != nil {
			return created, fmt.Errorf("create work order for warning %s: %w", event.WarningID, err)
		}
		metrics.RecordWorkOrder(wo.Category, string(wo.Priority))
		created = append(created, wo)
	}
	return created, nil
}

// Force generates a work order for event even if its warning_id was
// already seen, bypassing dedup (§4.9: "unless forced").
func (g *Generator) Force(ctx context.Context, event domain.WarningEvent) (domain.WorkOrder, bool, error) {
	wo, ok := g.build(event, true)
	if !ok {
		return domain.WorkOrder{}, false, nil
	}
	if err := g.repo.CreateWorkOrder(ctx, wo); err != nil {
		return domain.WorkOrder{}, false, fmt.Errorf("create work order for warning %s: %w", event.WarningID, err)
	}
	metrics.RecordWorkOrder(wo.Category, string(wo.Priority))
	return wo, true, nil
}

func (g *Generator) build(event domain.WarningEvent, force bool) (domain.WorkOrder, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !force && g.seen[event.WarningID] {
		return domain.WorkOrder{}, false
	}

	rule, ok := lookup(event.IndicatorName, event.WarningLevel)
	if !ok {
		return domain.WorkOrder{}, false
	}

	g.seen[event.WarningID] = true

	now := g.clock()
	return domain.WorkOrder{
		WorkOrderID:           fmt.Sprintf("wo-%s", event.WarningID),
		WarningID:             event.WarningID,
		Category:              rule.Category,
		Priority:              domain.PriorityForLevel(event.WarningLevel),
		Status:                domain.WorkOrderPending,
		VerificationRequired:  rule.VerificationRequired,
		VerificationRingCount: rule.VerificationRingCount,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, true
}
