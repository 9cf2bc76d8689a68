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

// indicatorColumns maps an indicator_name to the DerivedIndicators field
// that holds it, so RingRepository can maintain the indicator_values side
// table from a single RingSummary without a caller enumerating them.
func indicatorColumns(ind domain.DerivedIndicators) map[string]*float64 {
	return map[string]*float64{
		"specific_energy":        ind.SpecificEnergy,
		"ground_loss_rate":       ind.GroundLossRate,
		"volume_loss_ratio":      ind.VolumeLossRatio,
		"torque_thrust_ratio":    ind.TorqueThrustRatio,
		"penetration_efficiency": ind.PenetrationEfficiency,
		"power_efficiency":       ind.PowerEfficiency,
	}
}

// RingRepository persists RingSummary rows and maintains a denormalized
// indicator_values side table (ring_number, indicator_name, zone, value)
// so the warning engine's rate/predictive history lookups don't need to
// unpack the summary's JSON columns per query.
type RingRepository struct {
	db *sqlx.DB
}

// NewRingRepository builds a RingRepository.
func NewRingRepository(db *sqlx.DB) *RingRepository {
	return &RingRepository{db: db}
}

// UpsertRingSummary implements ring/summary.Repository.
func (r *RingRepository) UpsertRingSummary(ctx context.Context, s domain.RingSummary) error {
	plcFeatures, err := json.Marshal(s.PLCFeatures)
	if err != nil {
		return err
	}
	attitude, err := json.Marshal(s.Attitude)
	if err != nil {
		return err
	}
	indicators, err := json.Marshal(s.Indicators)
	if err != nil {
		return err
	}
	settlement, err := json.Marshal(s.Settlement)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO ring_summary (
			ring_number, start_time, end_time, plc_features, attitude,
			indicators, settlement, data_completeness_flag, geological_zone,
			synced_to_cloud, created_at, updated_at
		) VALUES (
			:ring_number, :start_time, :end_time, :plc_features, :attitude,
			:indicators, :settlement, :data_completeness_flag, :geological_zone,
			:synced_to_cloud, :created_at, :updated_at
		)
		ON CONFLICT (ring_number) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			plc_features = EXCLUDED.plc_features,
			attitude = EXCLUDED.attitude,
			indicators = EXCLUDED.indicators,
			settlement = EXCLUDED.settlement,
			data_completeness_flag = EXCLUDED.data_completeness_flag,
			geological_zone = EXCLUDED.geological_zone,
			synced_to_cloud = EXCLUDED.synced_to_cloud,
			updated_at = EXCLUDED.updated_at
	`, map[string]any{
		"ring_number":             s.RingNumber,
		"start_time":              s.StartTime,
		"end_time":                s.EndTime,
		"plc_features":            plcFeatures,
		"attitude":                attitude,
		"indicators":              indicators,
		"settlement":              settlement,
		"data_completeness_flag":  s.DataCompletenessFlag,
		"geological_zone":         s.GeologicalZone,
		"synced_to_cloud":         s.SyncedToCloud,
		"created_at":              s.CreatedAt,
		"updated_at":              s.UpdatedAt,
	}); err != nil {
		return mapError(err, "upsert ring_summary")
	}

	if err := r.upsertIndicatorValues(ctx, tx, s); err != nil {
		return err
	}
	if s.Settlement.Value != nil {
		if err := r.upsertIndicatorValue(ctx, tx, s.RingNumber, "settlement_value", s.GeologicalZone, *s.Settlement.Value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "commit ring_summary upsert")
	}
	return nil
}

func (r *RingRepository) upsertIndicatorValues(ctx context.Context, tx *sqlx.Tx, s domain.RingSummary) error {
	for name, value := range indicatorColumns(s.Indicators) {
		if value == nil {
			continue
		}
		if err := r.upsertIndicatorValue(ctx, tx, s.RingNumber, name, s.GeologicalZone, *value); err != nil {
			return err
		}
	}
	return nil
}

func (r *RingRepository) upsertIndicatorValue(ctx context.Context, tx *sqlx.Tx, ringNumber int64, indicatorName string, zone *string, value float64) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO ring_indicator_values (ring_number, indicator_name, geological_zone, value)
		VALUES (:ring_number, :indicator_name, :geological_zone, :value)
		ON CONFLICT (ring_number, indicator_name) DO UPDATE SET value = EXCLUDED.value
	`, map[string]any{
		"ring_number":     ringNumber,
		"indicator_name":  indicatorName,
		"geological_zone": zone,
		"value":           value,
	})
	if err != nil {
		return mapError(err, "upsert ring_indicator_values")
	}
	return nil
}

// RecentValues implements warning.HistorySource: the last windowSize+1
// values for indicatorName in zone, oldest first, matching the order the
// rate-of-change check expects (§4.7 Phase 2).
func (r *RingRepository) RecentValues(ctx context.Context, indicatorName, zone string, windowSize int) ([]float64, error) {
	var values []float64
	err := r.db.SelectContext(ctx, &values, `
		SELECT value FROM (
			SELECT v.value, v.ring_number
			FROM ring_indicator_values v
			WHERE v.indicator_name = $1 AND (v.geological_zone = $2 OR v.geological_zone IS NULL)
			ORDER BY v.ring_number DESC
			LIMIT $3
		) recent
		ORDER BY ring_number ASC
	`, indicatorName, zone, windowSize+1)
	if err != nil {
		return nil, mapError(err, "query recent indicator values")
	}
	return values, nil
}

// GetRingSummary retrieves one ring's full summary row.
func (r *RingRepository) GetRingSummary(ctx context.Context, ringNumber int64) (domain.RingSummary, error) {
	var row ringSummaryRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM ring_summary WHERE ring_number = $1`, ringNumber); err != nil {
		return domain.RingSummary{}, mapError(err, "retrieve ring_summary")
	}
	return row.toDomain()
}

// ringSortColumns is the allowlist of {sort} values (§6: "sort by one of
// {ring_number, start_time, created_at}") — never interpolate the raw
// query parameter into SQL.
var ringSortColumns = map[string]string{
	"ring_number": "ring_number",
	"start_time":  "start_time",
	"created_at":  "created_at",
}

// RingFilter narrows ListRingSummaries/CountRingSummaries along any
// combination of dimensions; a zero value leaves that dimension
// unfiltered (§6: "filters {completeness, geological_zone, start_ring,
// end_ring}").
type RingFilter struct {
	Completeness   domain.Completeness
	GeologicalZone string
	StartRing      *int64
	EndRing        *int64
	Sort           string // one of ringSortColumns' keys; defaults to ring_number
	Descending     bool
}

func (f RingFilter) whereClause() (string, map[string]any) {
	clause := "WHERE 1=1"
	args := map[string]any{}
	if f.Completeness != "" {
		clause += ` AND data_completeness_flag = :completeness`
		args["completeness"] = f.Completeness
	}
	if f.GeologicalZone != "" {
		clause += ` AND geological_zone = :geological_zone`
		args["geological_zone"] = f.GeologicalZone
	}
	if f.StartRing != nil {
		clause += ` AND ring_number >= :start_ring`
		args["start_ring"] = *f.StartRing
	}
	if f.EndRing != nil {
		clause += ` AND ring_number <= :end_ring`
		args["end_ring"] = *f.EndRing
	}
	return clause, args
}

func (f RingFilter) orderClause() string {
	column, ok := ringSortColumns[f.Sort]
	if !ok {
		column = "ring_number"
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}

// ListRingSummaries returns ring summaries matching filter, sorted per its
// Sort/Descending fields, for the query API's ring listing resource (§6).
func (r *RingRepository) ListRingSummaries(ctx context.Context, filter RingFilter, limit, offset int) ([]domain.RingSummary, error) {
	where, args := filter.whereClause()
	args["limit"] = limit
	args["offset"] = offset

	query := fmt.Sprintf(`SELECT * FROM ring_summary %s %s LIMIT :limit OFFSET :offset`, where, filter.orderClause())
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "prepare ring_summary list query")
	}
	defer stmt.Close()

	var rows []ringSummaryRow
	if err := stmt.SelectContext(ctx, &rows, args); err != nil {
		return nil, mapError(err, "list ring_summary")
	}

	summaries := make([]domain.RingSummary, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// CountRingSummaries returns the total number of rows matching filter,
// ignoring pagination, for the query API's {total, total_pages} envelope
// fields (§6).
func (r *RingRepository) CountRingSummaries(ctx context.Context, filter RingFilter) (int, error) {
	where, args := filter.whereClause()
	stmt, err := r.db.PrepareNamedContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM ring_summary %s`, where))
	if err != nil {
		return 0, mapError(err, "prepare ring_summary count query")
	}
	defer stmt.Close()

	var count int
	if err := stmt.GetContext(ctx, &count, args); err != nil {
		return 0, mapError(err, "count ring_summary")
	}
	return count, nil
}

type ringSummaryRow struct {
	RingNumber            int64   `db:"ring_number"`
	StartTime             float64 `db:"start_time"`
	EndTime               float64 `db:"end_time"`
	PLCFeatures           []byte  `db:"plc_features"`
	Attitude              []byte  `db:"attitude"`
	Indicators            []byte  `db:"indicators"`
	Settlement            []byte  `db:"settlement"`
	DataCompletenessFlag  string     `db:"data_completeness_flag"`
	GeologicalZone        *string    `db:"geological_zone"`
	SyncedToCloud         bool       `db:"synced_to_cloud"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

func (row ringSummaryRow) toDomain() (domain.RingSummary, error) {
	s := domain.RingSummary{
		RingNumber:           row.RingNumber,
		StartTime:            row.StartTime,
		EndTime:              row.EndTime,
		DataCompletenessFlag: domain.Completeness(row.DataCompletenessFlag),
		GeologicalZone:       row.GeologicalZone,
		SyncedToCloud:        row.SyncedToCloud,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if err := json.Unmarshal(row.PLCFeatures, &s.PLCFeatures); err != nil {
		return domain.RingSummary{}, err
	}
	if err := json.Unmarshal(row.Attitude, &s.Attitude); err != nil {
		return domain.RingSummary{}, err
	}
	if err := json.Unmarshal(row.Indicators, &s.Indicators); err != nil {
		return domain.RingSummary{}, err
	}
	if err := json.Unmarshal(row.Settlement, &s.Settlement); err != nil {
		return domain.RingSummary{}, err
	}
	return s, nil
}
