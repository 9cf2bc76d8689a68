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
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// thresholdConfig is everything about a WarningThreshold beyond its
// lookup key, stored as one JSONB blob: the per-tier bounds and the
// rate/predictive/hysteresis parameters change together as a unit when
// an operator edits a threshold, so there is no query that needs them
// addressed independently.
type thresholdConfig struct {
	Attention  domain.Tier               `json:"attention"`
	Warning    domain.Tier               `json:"warning"`
	Alarm      domain.Tier               `json:"alarm"`
	Rate       domain.RateParams         `json:"rate"`
	Predictive domain.PredictiveParams   `json:"predictive"`
	Hysteresis domain.Hysteresis         `json:"hysteresis"`
	Channels   map[domain.Level][]string `json:"channels"`
}

// ThresholdRepository persists WarningThreshold configuration, unique per
// (indicator_name, geological_zone) (§6).
type ThresholdRepository struct {
	db *sqlx.DB
}

// NewThresholdRepository builds a ThresholdRepository.
func NewThresholdRepository(db *sqlx.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// Threshold implements warning.ThresholdSource for a single (indicator,
// zone) pair; Engine.resolveThreshold already applies the "all" wildcard
// fallback, so this method performs an exact-match lookup only.
func (r *ThresholdRepository) Threshold(ctx context.Context, indicatorName, zone string) (domain.WarningThreshold, bool, error) {
	var row thresholdRow
	err := r.db.GetContext(ctx, &row, `
		SELECT indicator_name, geological_zone, config
		FROM warning_thresholds
		WHERE indicator_name = $1 AND geological_zone = $2
	`, indicatorName, zone)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WarningThreshold{}, false, nil
	}
	if err != nil {
		return domain.WarningThreshold{}, false, mapError(err, "retrieve warning_thresholds")
	}

	th, err := row.toDomain()
	if err != nil {
		return domain.WarningThreshold{}, false, err
	}
	return th, true, nil
}

// Upsert writes th, keyed by (indicator_name, geological_zone).
func (r *ThresholdRepository) Upsert(ctx context.Context, th domain.WarningThreshold) error {
	cfg := thresholdConfig{
		Attention:  th.Attention,
		Warning:    th.Warning,
		Alarm:      th.Alarm,
		Rate:       th.Rate,
		Predictive: th.Predictive,
		Hysteresis: th.Hysteresis,
		Channels:   th.Channels,
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO warning_thresholds (indicator_name, geological_zone, config)
		VALUES ($1, $2, $3)
		ON CONFLICT (indicator_name, geological_zone) DO UPDATE SET config = EXCLUDED.config
	`, th.IndicatorName, th.GeologicalZone, raw)
	if err != nil {
		return mapError(err, "upsert warning_thresholds")
	}
	return nil
}

// Delete removes a threshold row.
func (r *ThresholdRepository) Delete(ctx context.Context, indicatorName, zone string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM warning_thresholds WHERE indicator_name = $1 AND geological_zone = $2
	`, indicatorName, zone)
	if err != nil {
		return mapError(err, "delete warning_thresholds")
	}
	return nil
}

type thresholdRow struct {
	IndicatorName  string `db:"indicator_name"`
	GeologicalZone string `db:"geological_zone"`
	Config         []byte `db:"config"`
}

func (row thresholdRow) toDomain() (domain.WarningThreshold, error) {
	var cfg thresholdConfig
	if err := json.Unmarshal(row.Config, &cfg); err != nil {
		return domain.WarningThreshold{}, err
	}
	return domain.WarningThreshold{
		IndicatorName:  row.IndicatorName,
		GeologicalZone: row.GeologicalZone,
		Attention:      cfg.Attention,
		Warning:        cfg.Warning,
		Alarm:          cfg.Alarm,
		Rate:           cfg.Rate,
		Predictive:     cfg.Predictive,
		Hysteresis:     cfg.Hysteresis,
		Channels:       cfg.Channels,
	}, nil
}
