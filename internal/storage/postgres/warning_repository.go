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
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// WarningRepository persists WarningEvent rows and answers queries over
// them (§4.7 Phase 6, §6).
type WarningRepository struct {
	db *sqlx.DB
}

// NewWarningRepository builds a WarningRepository.
func NewWarningRepository(db *sqlx.DB) *WarningRepository {
	return &WarningRepository{db: db}
}

// PersistWarnings implements warning.Persister: every event in events
// commits inside one transaction, so a partial failure never leaves a
// ring's warning batch half-written (§4.7 Phase 6: atomic append).
func (r *WarningRepository) PersistWarnings(ctx context.Context, events []domain.WarningEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	defer tx.Rollback()

	for _, event := range events {
		if err := r.insert(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "commit warning_events batch")
	}
	return nil
}

func (r *WarningRepository) insert(ctx context.Context, tx *sqlx.Tx, event domain.WarningEvent) error {
	combined, err := json.Marshal(event.CombinedIndicators)
	if err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO warning_events (
			warning_id, warning_type, warning_level, ring_number, timestamp,
			indicator_name, indicator_value, threshold_value, threshold_type,
			rate_of_change, rate_multiplier,
			predicted_value, prediction_confidence, prediction_horizon_hours,
			combined_indicators, status, created_at,
			acknowledged_at, resolved_at, acknowledged_by, notes
		) VALUES (
			:warning_id, :warning_type, :warning_level, :ring_number, :timestamp,
			:indicator_name, :indicator_value, :threshold_value, :threshold_type,
			:rate_of_change, :rate_multiplier,
			:predicted_value, :prediction_confidence, :prediction_horizon_hours,
			:combined_indicators, :status, :created_at,
			:acknowledged_at, :resolved_at, :acknowledged_by, :notes
		)
	`, map[string]any{
		"warning_id":               event.WarningID,
		"warning_type":             event.WarningType,
		"warning_level":            event.WarningLevel,
		"ring_number":              event.RingNumber,
		"timestamp":                event.Timestamp,
		"indicator_name":           event.IndicatorName,
		"indicator_value":          event.IndicatorValue,
		"threshold_value":          event.ThresholdValue,
		"threshold_type":           event.ThresholdType,
		"rate_of_change":           event.RateOfChange,
		"rate_multiplier":          event.RateMultiplier,
		"predicted_value":          event.PredictedValue,
		"prediction_confidence":    event.PredictionConfidence,
		"prediction_horizon_hours": event.PredictionHorizonHours,
		"combined_indicators":      combined,
		"status":                   event.Status,
		"created_at":               event.CreatedAt,
		"acknowledged_at":          event.AcknowledgedAt,
		"resolved_at":              event.ResolvedAt,
		"acknowledged_by":          event.AcknowledgedBy,
		"notes":                    event.Notes,
	})
	if err != nil {
		return mapError(err, "insert warning_events row")
	}
	return nil
}

// GetByID retrieves a single warning event by its warning_id.
func (r *WarningRepository) GetByID(ctx context.Context, warningID string) (domain.WarningEvent, error) {
	var row warningEventRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM warning_events WHERE warning_id = $1`, warningID); err != nil {
		return domain.WarningEvent{}, mapError(err, "retrieve warning_events")
	}
	return row.toDomain()
}

// Transition moves a warning to a new lifecycle status, rejecting the
// write outright when the current status can't legally reach it (§3's
// active -> acknowledged -> resolved / active -> false_positive machine,
// enforced by domain.Status.CanTransition).
func (r *WarningRepository) Transition(ctx context.Context, warningID string, to domain.Status, by, notes string, at time.Time) error {
	current, err := r.GetByID(ctx, warningID)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(to) {
		return fmt.Errorf("warning %s cannot transition from %s to %s", warningID, current.Status, to)
	}

	set := map[string]any{"status": to, "warning_id": warningID}
	clause := "status = :status"
	switch to {
	case domain.StatusAcknowledged:
		set["acknowledged_at"] = at
		set["acknowledged_by"] = by
		clause += ", acknowledged_at = :acknowledged_at, acknowledged_by = :acknowledged_by"
	case domain.StatusResolved, domain.StatusFalsePositive:
		set["resolved_at"] = at
		clause += ", resolved_at = :resolved_at"
	}
	if notes != "" {
		set["notes"] = notes
		clause += ", notes = :notes"
	}

	if _, err := r.db.NamedExecContext(ctx,
		fmt.Sprintf("UPDATE warning_events SET %s WHERE warning_id = :warning_id", clause), set,
	); err != nil {
		return mapError(err, "update warning_events status")
	}
	return nil
}

// WarningFilter narrows ListWarnings along any combination of dimensions;
// a zero value (empty string, nil pointer) leaves that dimension
// unfiltered (§6: "filters {level, type, status, ring_number,
// indicator_name, start_time, end_time}").
type WarningFilter struct {
	Status        domain.Status
	Level         domain.Level
	WarningType   domain.WarningType
	IndicatorName string
	RingNumber    *int64
	StartTime     *float64
	EndTime       *float64
}

// ListWarnings returns warnings matching filter, most recent first, for
// the query API's warnings resource (§6).
func (r *WarningRepository) ListWarnings(ctx context.Context, filter WarningFilter, limit, offset int) ([]domain.WarningEvent, error) {
	query := `SELECT * FROM warning_events WHERE 1=1`
	args := map[string]any{"limit": limit, "offset": offset}

	if filter.Status != "" {
		query += ` AND status = :status`
		args["status"] = filter.Status
	}
	if filter.Level != "" {
		query += ` AND warning_level = :warning_level`
		args["warning_level"] = filter.Level
	}
	if filter.WarningType != "" {
		query += ` AND warning_type = :warning_type`
		args["warning_type"] = filter.WarningType
	}
	if filter.IndicatorName != "" {
		query += ` AND indicator_name = :indicator_name`
		args["indicator_name"] = filter.IndicatorName
	}
	if filter.RingNumber != nil {
		query += ` AND ring_number = :ring_number`
		args["ring_number"] = *filter.RingNumber
	}
	if filter.StartTime != nil {
		query += ` AND timestamp >= :start_time`
		args["start_time"] = *filter.StartTime
	}
	if filter.EndTime != nil {
		query += ` AND timestamp <= :end_time`
		args["end_time"] = *filter.EndTime
	}
	query += ` ORDER BY created_at DESC LIMIT :limit OFFSET :offset`

	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "prepare warning_events list query")
	}
	defer stmt.Close()

	var rows []warningEventRow
	if err := stmt.SelectContext(ctx, &rows, args); err != nil {
		return nil, mapError(err, "list warning_events")
	}

	events := make([]domain.WarningEvent, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Stats is the warning statistics summary (§6: "counts by status, level,
// and type within an optional time window").
type Stats struct {
	ByStatus map[string]int `json:"by_status"`
	ByLevel  map[string]int `json:"by_level"`
	ByType   map[string]int `json:"by_type"`
}

// Stats computes warning counts grouped by status, level, and type,
// optionally restricted to [startTime, endTime].
func (r *WarningRepository) Stats(ctx context.Context, startTime, endTime *float64) (Stats, error) {
	where := "WHERE 1=1"
	args := map[string]any{}
	if startTime != nil {
		where += " AND timestamp >= :start_time"
		args["start_time"] = *startTime
	}
	if endTime != nil {
		where += " AND timestamp <= :end_time"
		args["end_time"] = *endTime
	}

	stats := Stats{ByStatus: map[string]int{}, ByLevel: map[string]int{}, ByType: map[string]int{}}
	for _, dim := range []struct {
		column string
		target map[string]int
	}{
		{"status", stats.ByStatus},
		{"warning_level", stats.ByLevel},
		{"warning_type", stats.ByType},
	} {
		var rows []struct {
			Key   string `db:"key"`
			Count int    `db:"count"`
		}
		stmt, err := r.db.PrepareNamedContext(ctx, fmt.Sprintf(
			`SELECT %s AS key, COUNT(*) AS count FROM warning_events %s GROUP BY %s`, dim.column, where, dim.column,
		))
		if err != nil {
			return Stats{}, mapError(err, "prepare warning_events stats query")
		}
		err = stmt.SelectContext(ctx, &rows, args)
		stmt.Close()
		if err != nil {
			return Stats{}, mapError(err, "query warning_events stats")
		}
		for _, row := range rows {
			dim.target[row.Key] = row.Count
		}
	}
	return stats, nil
}

type warningEventRow struct {
	WarningID              string    `db:"warning_id"`
	WarningType            string    `db:"warning_type"`
	WarningLevel           string    `db:"warning_level"`
	RingNumber             int64     `db:"ring_number"`
	Timestamp              float64   `db:"timestamp"`
	IndicatorName          string    `db:"indicator_name"`
	IndicatorValue         float64   `db:"indicator_value"`
	ThresholdValue         float64   `db:"threshold_value"`
	ThresholdType          string    `db:"threshold_type"`
	RateOfChange           *float64  `db:"rate_of_change"`
	RateMultiplier         *float64  `db:"rate_multiplier"`
	PredictedValue         *float64  `db:"predicted_value"`
	PredictionConfidence   *float64  `db:"prediction_confidence"`
	PredictionHorizonHours *float64  `db:"prediction_horizon_hours"`
	CombinedIndicators     []byte    `db:"combined_indicators"`
	Status                 string    `db:"status"`
	CreatedAt              time.Time `db:"created_at"`
	AcknowledgedAt         *time.Time `db:"acknowledged_at"`
	ResolvedAt             *time.Time `db:"resolved_at"`
	AcknowledgedBy         string    `db:"acknowledged_by"`
	Notes                  string    `db:"notes"`
}

func (row warningEventRow) toDomain() (domain.WarningEvent, error) {
	var combined []string
	if len(row.CombinedIndicators) > 0 {
		if err := json.Unmarshal(row.CombinedIndicators, &combined); err != nil {
			return domain.WarningEvent{}, err
		}
	}
	return domain.WarningEvent{
		WarningID:              row.WarningID,
		WarningType:            domain.WarningType(row.WarningType),
		WarningLevel:           domain.Level(row.WarningLevel),
		RingNumber:             row.RingNumber,
		Timestamp:              row.Timestamp,
		IndicatorName:          row.IndicatorName,
		IndicatorValue:         row.IndicatorValue,
		ThresholdValue:         row.ThresholdValue,
		ThresholdType:          domain.ThresholdType(row.ThresholdType),
		RateOfChange:           row.RateOfChange,
		RateMultiplier:         row.RateMultiplier,
		PredictedValue:         row.PredictedValue,
		PredictionConfidence:   row.PredictionConfidence,
		PredictionHorizonHours: row.PredictionHorizonHours,
		CombinedIndicators:     combined,
		Status:                 domain.Status(row.Status),
		CreatedAt:              row.CreatedAt,
		AcknowledgedAt:         row.AcknowledgedAt,
		ResolvedAt:             row.ResolvedAt,
		AcknowledgedBy:         row.AcknowledgedBy,
		Notes:                  row.Notes,
	}, nil
}
