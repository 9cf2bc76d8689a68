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

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/tunneledge/internal/warning/predictive"
)

// PredictionRepository stores and serves forecast results written by the
// external prediction producer (§1: ML inference itself is out of scope;
// this repository only persists and reads the results another process
// computed).
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository builds a PredictionRepository.
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// LatestPrediction implements warning.PredictionSource: the most recent
// forecast recorded for indicatorName on ringNumber.
func (r *PredictionRepository) LatestPrediction(ctx context.Context, indicatorName string, ringNumber int64) (predictive.Prediction, bool, error) {
	var row predictionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT predicted_value, confidence_upper_bound, confidence, horizon_hours
		FROM prediction_results
		WHERE indicator_name = $1 AND ring_number = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, indicatorName, ringNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return predictive.Prediction{}, false, nil
	}
	if err != nil {
		return predictive.Prediction{}, false, mapError(err, "retrieve prediction_results")
	}
	return predictive.Prediction{
		PredictedValue:       row.PredictedValue,
		ConfidenceUpperBound: row.ConfidenceUpperBound,
		Confidence:           row.Confidence,
		HorizonHours:         row.HorizonHours,
	}, true, nil
}

// Latest returns the most recent forecast recorded for indicatorName across
// all rings, along with the ring number it was produced for (§6 "latest"
// prediction lookup, independent of the by-ring lookup LatestPrediction
// serves).
func (r *PredictionRepository) Latest(ctx context.Context, indicatorName string) (predictive.Prediction, int64, bool, error) {
	var row struct {
		predictionRow
		RingNumber int64 `db:"ring_number"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT predicted_value, confidence_upper_bound, confidence, horizon_hours, ring_number
		FROM prediction_results
		WHERE indicator_name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, indicatorName)
	if errors.Is(err, sql.ErrNoRows) {
		return predictive.Prediction{}, 0, false, nil
	}
	if err != nil {
		return predictive.Prediction{}, 0, false, mapError(err, "retrieve prediction_results")
	}
	return predictive.Prediction{
		PredictedValue:       row.PredictedValue,
		ConfidenceUpperBound: row.ConfidenceUpperBound,
		Confidence:           row.Confidence,
		HorizonHours:         row.HorizonHours,
	}, row.RingNumber, true, nil
}

// StorePrediction records a forecast produced upstream for one indicator on
// one ring.
func (r *PredictionRepository) StorePrediction(ctx context.Context, indicatorName string, ringNumber int64, p predictive.Prediction) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO prediction_results (
			indicator_name, ring_number, predicted_value, confidence_upper_bound,
			confidence, horizon_hours, created_at
		) VALUES (
			:indicator_name, :ring_number, :predicted_value, :confidence_upper_bound,
			:confidence, :horizon_hours, now()
		)
	`, map[string]any{
		"indicator_name":         indicatorName,
		"ring_number":            ringNumber,
		"predicted_value":        p.PredictedValue,
		"confidence_upper_bound": p.ConfidenceUpperBound,
		"confidence":             p.Confidence,
		"horizon_hours":          p.HorizonHours,
	})
	if err != nil {
		return mapError(err, "insert prediction_results row")
	}
	return nil
}

type predictionRow struct {
	PredictedValue       float64 `db:"predicted_value"`
	ConfidenceUpperBound float64 `db:"confidence_upper_bound"`
	Confidence           float64 `db:"confidence"`
	HorizonHours         float64 `db:"horizon_hours"`
}
