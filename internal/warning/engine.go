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

// Package warning wires the seven-phase engine (§4.7) together:
// threshold, rate, and predictive checks per indicator; a hysteresis
// filter; combined-warning aggregation; persistence; and fire-and-forget
// dispatch. Sub-phases live in threshold/, rate/, predictive/,
// hysteresis/, and combiner/; this package is the orchestrator.
package warning

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
	"github.com/jordigilh/tunneledge/internal/telemetry"
	"github.com/jordigilh/tunneledge/internal/warning/combiner"
	"github.com/jordigilh/tunneledge/internal/warning/hysteresis"
	"github.com/jordigilh/tunneledge/internal/warning/predictive"
	"github.com/jordigilh/tunneledge/internal/warning/rate"
	"github.com/jordigilh/tunneledge/internal/warning/threshold"
)

// ThresholdSource looks up the configured WarningThreshold for an exact
// (indicator, zone) pair; Engine.resolveThreshold applies the "all"
// wildcard fallback (§3).
type ThresholdSource interface {
	Threshold(ctx context.Context, indicatorName, zone string) (domain.WarningThreshold, bool, error)
}

// HistorySource supplies the last windowSize+1 historical values for an
// indicator, inclusive of the current ring (§4.7 Phase 2).
type HistorySource interface {
	RecentValues(ctx context.Context, indicatorName, zone string, windowSize int) ([]float64, error)
}

// PredictionSource supplies the latest forecast for an indicator on a
// ring, if any (§4.7 Phase 3).
type PredictionSource interface {
	LatestPrediction(ctx context.Context, indicatorName string, ringNumber int64) (predictive.Prediction, bool, error)
}

// Persister appends a batch of warnings atomically (§4.7 Phase 6).
type Persister interface {
	PersistWarnings(ctx context.Context, events []domain.WarningEvent) error
}

// Dispatcher fire-and-forgets evaluated warnings to the notification
// router (§4.7 Phase 7).
type Dispatcher interface {
	Dispatch(events []domain.WarningEvent)
}

// Engine evaluates one ring at a time against the configured thresholds,
// emitting threshold/rate/predictive/combined warnings.
type Engine struct {
	thresholds  ThresholdSource
	history     HistorySource
	predictions PredictionSource
	hysteresis  *hysteresis.Filter
	persister   Persister
	dispatcher  Dispatcher
	logger      logr.Logger
}

// New builds an Engine with its own hysteresis state.
func New(thresholds ThresholdSource, history HistorySource, predictions PredictionSource, persister Persister, dispatcher Dispatcher, logger logr.Logger) *Engine {
	return &Engine{
		thresholds:  thresholds,
		history:     history,
		predictions: predictions,
		hysteresis:  hysteresis.New(),
		persister:   persister,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// resolveThreshold tries (indicator, zone), then (indicator, "all").
func (e *Engine) resolveThreshold(ctx context.Context, indicatorName, zone string) (domain.WarningThreshold, bool, error) {
	if th, found, err := e.thresholds.Threshold(ctx, indicatorName, zone); err != nil {
		return domain.WarningThreshold{}, false, err
	} else if found {
		return th, true, nil
	}
	return e.thresholds.Threshold(ctx, indicatorName, "all")
}

// EvaluateRing runs all seven phases for one ring and returns the emitted
// warnings (per-indicator plus any combined event). Per-ring evaluation
// is expected to be called with all phases completing before the next
// ring is evaluated (§5 ordering guarantee).
func (e *Engine) EvaluateRing(ctx context.Context, ringNumber int64, zone string, indicatorValues map[string]float64, timestamp float64) ([]domain.WarningEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, "warning.evaluate_ring", telemetry.RingAttributes(ringNumber, zone)...)
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordWarningEvaluation(time.Since(start)) }()

	fired := map[hysteresis.Key]struct{}{}
	thresholdsByKey := map[hysteresis.Key]domain.WarningThreshold{}
	var passed []domain.WarningEvent

	for indicatorName, value := range indicatorValues {
		th, found, err := e.resolveThreshold(ctx, indicatorName, zone)
		if err != nil {
			e.logger.Error(err, "threshold lookup failed", "indicator", indicatorName, "zone", zone)
			continue
		}
		if !found {
			continue
		}
		key := hysteresis.Key{Indicator: indicatorName, Zone: zone}
		thresholdsByKey[key] = th

		for _, candidate := range e.candidates(ctx, indicatorName, zone, value, th, ringNumber, timestamp) {
			if e.hysteresis.Pass(key, candidate.WarningLevel, candidate.IndicatorValue, candidate.ThresholdValue, th.Hysteresis.Percentage, timestamp) {
				fired[key] = struct{}{}
				metrics.RecordWarning(string(candidate.WarningType), string(candidate.WarningLevel))
				passed = append(passed, candidate)
			}
		}
	}

	e.hysteresis.Cleanup(fired, valuesByKey(indicatorValues, zone), thresholdsByKey, threshold.WithinNormalRange)

	if combined, ok := combiner.Combine(ringNumber, timestamp, passed); ok {
		metrics.RecordWarning(string(combined.WarningType), string(combined.WarningLevel))
		passed = append(passed, combined)
	}

	span.SetAttributes(attribute.Int("warnings.fired", len(passed)))

	if len(passed) > 0 {
		if err := e.persister.PersistWarnings(ctx, passed); err != nil {
			telemetry.RecordError(span, err)
			e.logger.Error(err, "warning persistence failed, rolling back", "ring_number", ringNumber)
			return nil, err
		}
		e.dispatcher.Dispatch(passed)
	}

	return passed, nil
}

// candidates runs the threshold, rate, and predictive checks for one
// indicator independently and returns every hit, in phase order (§4.7:
// each phase "produces" its own warning; all of them are pooled and run
// through hysteresis individually rather than one check pre-empting the
// others).
func (e *Engine) candidates(ctx context.Context, indicatorName, zone string, value float64, th domain.WarningThreshold, ringNumber int64, timestamp float64) []domain.WarningEvent {
	ctx, span := telemetry.StartSpan(ctx, "warning.evaluate_indicator", attribute.String("indicator.name", indicatorName))
	defer span.End()

	var out []domain.WarningEvent

	if event, ok := threshold.Check(indicatorName, value, th, ringNumber, timestamp); ok {
		out = append(out, event)
	}

	if series, err := e.history.RecentValues(ctx, indicatorName, zone, th.Rate.WindowSize); err == nil {
		if event, ok := rate.Check(indicatorName, series, th.Rate, ringNumber, timestamp); ok {
			out = append(out, event)
		}
	} else {
		telemetry.RecordError(span, err)
		e.logger.Error(err, "history lookup failed", "indicator", indicatorName)
	}

	if pred, found, err := e.predictions.LatestPrediction(ctx, indicatorName, ringNumber); err == nil && found {
		if event, ok := predictive.Check(indicatorName, pred, th.Predictive, th, ringNumber, timestamp); ok {
			out = append(out, event)
		}
	} else if err != nil {
		telemetry.RecordError(span, err)
		e.logger.Error(err, "prediction lookup failed", "indicator", indicatorName)
	}

	return out
}

func valuesByKey(indicatorValues map[string]float64, zone string) map[hysteresis.Key]float64 {
	out := make(map[hysteresis.Key]float64, len(indicatorValues))
	for indicatorName, value := range indicatorValues {
		out[hysteresis.Key{Indicator: indicatorName, Zone: zone}] = value
	}
	return out
}
