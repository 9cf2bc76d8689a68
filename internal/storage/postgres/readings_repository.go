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
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/tunneledge/internal/buffer"
	"github.com/jordigilh/tunneledge/internal/domain"
)

// Table names for the three reading kinds (§6 persisted state layout).
const (
	TablePLCLogs        = "plc_logs"
	TableAttitudeLogs    = "attitude_logs"
	TableMonitoringLogs = "monitoring_logs"
)

// ReadingsRepository persists sensor readings that have cleared the
// quality pipeline. Its Flush method is a buffer.FlushFunc: the buffer
// writer is the system's single writer into these tables (§5).
type ReadingsRepository struct {
	db *sqlx.DB
}

// NewReadingsRepository builds a ReadingsRepository.
func NewReadingsRepository(db *sqlx.DB) *ReadingsRepository {
	return &ReadingsRepository{db: db}
}

// Flush writes every table's batch inside one transaction, so a partial
// failure never leaves one table's batch committed without its siblings.
func (r *ReadingsRepository) Flush(ctx context.Context, batches map[string][]buffer.Entry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	defer tx.Rollback()

	for table, entries := range batches {
		if err := r.insertBatch(ctx, tx, table, entries); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "commit batch")
	}
	return nil
}

func (r *ReadingsRepository) insertBatch(ctx context.Context, tx *sqlx.Tx, table string, entries []buffer.Entry) error {
	switch table {
	case TablePLCLogs:
		for _, e := range entries {
			row, ok := e.Row.(domain.PlcReading)
			if !ok {
				return fmt.Errorf("plc_logs entry has unexpected row type %T", e.Row)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO plc_logs (source_id, timestamp, tag_name, value, quality_flag, ring_number)
				VALUES (:source_id, :timestamp, :tag_name, :value, :quality_flag, :ring_number)
			`, map[string]any{
				"source_id":    row.SourceID,
				"timestamp":    row.Timestamp,
				"tag_name":     row.TagName,
				"value":        row.Value,
				"quality_flag": row.QualityFlag,
				"ring_number":  row.RingNumber,
			}); err != nil {
				return mapError(err, "insert plc_logs row")
			}
		}
	case TableAttitudeLogs:
		for _, e := range entries {
			row, ok := e.Row.(domain.AttitudeReading)
			if !ok {
				return fmt.Errorf("attitude_logs entry has unexpected row type %T", e.Row)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO attitude_logs (source_id, timestamp, pitch, roll, yaw, horizontal_deviation, vertical_deviation, axis_deviation, quality_flag, ring_number)
				VALUES (:source_id, :timestamp, :pitch, :roll, :yaw, :horizontal_deviation, :vertical_deviation, :axis_deviation, :quality_flag, :ring_number)
			`, map[string]any{
				"source_id":            row.SourceID,
				"timestamp":            row.Timestamp,
				"pitch":                row.Pitch,
				"roll":                 row.Roll,
				"yaw":                  row.Yaw,
				"horizontal_deviation": row.HorizontalDeviation,
				"vertical_deviation":   row.VerticalDeviation,
				"axis_deviation":       row.AxisDeviation,
				"quality_flag":         row.QualityFlag,
				"ring_number":          row.RingNumber,
			}); err != nil {
				return mapError(err, "insert attitude_logs row")
			}
		}
	case TableMonitoringLogs:
		for _, e := range entries {
			row, ok := e.Row.(domain.MonitoringReading)
			if !ok {
				return fmt.Errorf("monitoring_logs entry has unexpected row type %T", e.Row)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO monitoring_logs (source_id, timestamp, sensor_type, sensor_location, value, unit, quality_flag, ring_number)
				VALUES (:source_id, :timestamp, :sensor_type, :sensor_location, :value, :unit, :quality_flag, :ring_number)
			`, map[string]any{
				"source_id":       row.SourceID,
				"timestamp":       row.Timestamp,
				"sensor_type":     row.SensorType,
				"sensor_location": row.SensorLocation,
				"value":           row.Value,
				"unit":            row.Unit,
				"quality_flag":    row.QualityFlag,
				"ring_number":     row.RingNumber,
			}); err != nil {
				return mapError(err, "insert monitoring_logs row")
			}
		}
	default:
		return fmt.Errorf("unknown readings table %q", table)
	}
	return nil
}

// PLCReadingsInWindow returns every plc_logs row with timestamp in
// [from, to), used by ring finalization to aggregate a completed ring's
// tag features (§4.5).
func (r *ReadingsRepository) PLCReadingsInWindow(ctx context.Context, from, to float64) ([]domain.PlcReading, error) {
	var rows []plcReadingRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source_id, timestamp, tag_name, value, quality_flag, ring_number
		FROM plc_logs WHERE timestamp >= $1 AND timestamp < $2
	`, from, to)
	if err != nil {
		return nil, mapError(err, "retrieve plc_logs window")
	}
	out := make([]domain.PlcReading, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// AttitudeReadingsInWindow returns every attitude_logs row with timestamp
// in [from, to), used to aggregate a completed ring's trajectory (§4.5).
func (r *ReadingsRepository) AttitudeReadingsInWindow(ctx context.Context, from, to float64) ([]domain.AttitudeReading, error) {
	var rows []attitudeReadingRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source_id, timestamp, pitch, roll, yaw, horizontal_deviation, vertical_deviation, axis_deviation, quality_flag, ring_number
		FROM attitude_logs WHERE timestamp >= $1 AND timestamp < $2
	`, from, to)
	if err != nil {
		return nil, mapError(err, "retrieve attitude_logs window")
	}
	out := make([]domain.AttitudeReading, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// MonitoringReadingsInWindow returns every monitoring_logs row with
// timestamp in [from, to), optionally filtered to sensorLocations.
// Implements settlement.Reader (§4.5).
func (r *ReadingsRepository) MonitoringReadingsInWindow(from, to float64, sensorLocations []string) ([]domain.MonitoringReading, error) {
	ctx := context.Background()
	query := `
		SELECT source_id, timestamp, sensor_type, sensor_location, value, unit, quality_flag, ring_number
		FROM monitoring_logs WHERE timestamp >= $1 AND timestamp < $2
	`
	args := []any{from, to}
	if len(sensorLocations) > 0 {
		query += ` AND sensor_location = ANY($3)`
		args = append(args, sensorLocations)
	}

	var rows []monitoringReadingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err, "retrieve monitoring_logs window")
	}
	out := make([]domain.MonitoringReading, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// rawRingDataLimit caps every per-type slice the raw ring data endpoint
// returns (§6: "Get raw ring data: per-type slice capped at 10 000
// points").
const rawRingDataLimit = 10000

// PLCReadingsForRing returns up to rawRingDataLimit plc_logs rows for
// ringNumber, oldest first.
func (r *ReadingsRepository) PLCReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.PlcReading, error) {
	var rows []plcReadingRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source_id, timestamp, tag_name, value, quality_flag, ring_number
		FROM plc_logs WHERE ring_number = $1 ORDER BY timestamp ASC LIMIT $2
	`, ringNumber, rawRingDataLimit)
	if err != nil {
		return nil, mapError(err, "retrieve plc_logs for ring")
	}
	out := make([]domain.PlcReading, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// AttitudeReadingsForRing returns up to rawRingDataLimit attitude_logs
// rows for ringNumber, oldest first.
func (r *ReadingsRepository) AttitudeReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.AttitudeReading, error) {
	var rows []attitudeReadingRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source_id, timestamp, pitch, roll, yaw, horizontal_deviation, vertical_deviation, axis_deviation, quality_flag, ring_number
		FROM attitude_logs WHERE ring_number = $1 ORDER BY timestamp ASC LIMIT $2
	`, ringNumber, rawRingDataLimit)
	if err != nil {
		return nil, mapError(err, "retrieve attitude_logs for ring")
	}
	out := make([]domain.AttitudeReading, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// MonitoringReadingsForRing returns up to rawRingDataLimit monitoring_logs
// rows for ringNumber, oldest first.
func (r *ReadingsRepository) MonitoringReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.MonitoringReading, error) {
	var rows []monitoringReadingRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source_id, timestamp, sensor_type, sensor_location, value, unit, quality_flag, ring_number
		FROM monitoring_logs WHERE ring_number = $1 ORDER BY timestamp ASC LIMIT $2
	`, ringNumber, rawRingDataLimit)
	if err != nil {
		return nil, mapError(err, "retrieve monitoring_logs for ring")
	}
	out := make([]domain.MonitoringReading, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

type plcReadingRow struct {
	SourceID    string             `db:"source_id"`
	Timestamp   float64            `db:"timestamp"`
	TagName     string             `db:"tag_name"`
	Value       float64            `db:"value"`
	QualityFlag domain.QualityFlag `db:"quality_flag"`
	RingNumber  *int64             `db:"ring_number"`
}

func (row plcReadingRow) toDomain() domain.PlcReading {
	return domain.PlcReading{
		SourceID:    row.SourceID,
		Timestamp:   row.Timestamp,
		TagName:     row.TagName,
		Value:       row.Value,
		QualityFlag: row.QualityFlag,
		RingNumber:  row.RingNumber,
	}
}

type attitudeReadingRow struct {
	SourceID            string             `db:"source_id"`
	Timestamp           float64            `db:"timestamp"`
	Pitch               float64            `db:"pitch"`
	Roll                float64            `db:"roll"`
	Yaw                 float64            `db:"yaw"`
	HorizontalDeviation float64            `db:"horizontal_deviation"`
	VerticalDeviation   float64            `db:"vertical_deviation"`
	AxisDeviation       float64            `db:"axis_deviation"`
	QualityFlag         domain.QualityFlag `db:"quality_flag"`
	RingNumber          *int64             `db:"ring_number"`
}

func (row attitudeReadingRow) toDomain() domain.AttitudeReading {
	return domain.AttitudeReading{
		SourceID:            row.SourceID,
		Timestamp:           row.Timestamp,
		Pitch:               row.Pitch,
		Roll:                row.Roll,
		Yaw:                 row.Yaw,
		HorizontalDeviation: row.HorizontalDeviation,
		VerticalDeviation:   row.VerticalDeviation,
		AxisDeviation:       row.AxisDeviation,
		QualityFlag:         row.QualityFlag,
		RingNumber:          row.RingNumber,
	}
}

type monitoringReadingRow struct {
	SourceID       string             `db:"source_id"`
	Timestamp      float64            `db:"timestamp"`
	SensorType     string             `db:"sensor_type"`
	SensorLocation string             `db:"sensor_location"`
	Value          float64            `db:"value"`
	Unit           string             `db:"unit"`
	QualityFlag    domain.QualityFlag `db:"quality_flag"`
	RingNumber     *int64             `db:"ring_number"`
}

func (row monitoringReadingRow) toDomain() domain.MonitoringReading {
	return domain.MonitoringReading{
		SourceID:       row.SourceID,
		Timestamp:      row.Timestamp,
		SensorType:     row.SensorType,
		SensorLocation: row.SensorLocation,
		Value:          row.Value,
		Unit:           row.Unit,
		QualityFlag:    row.QualityFlag,
		RingNumber:     row.RingNumber,
	}
}
