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

package api

import (
	"net/http"

	"github.com/jordigilh/tunneledge/internal/buffer"
	"github.com/jordigilh/tunneledge/internal/domain"
	apperrors "github.com/jordigilh/tunneledge/internal/errors"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
)

// manualLogEntry is one operator-supplied reading of any of the three
// sensor kinds; the kind-specific payload field matching Kind must be
// set, and the other payload fields are ignored.
type manualLogEntry struct {
	Kind       domain.SampleKind `json:"kind" validate:"required,oneof=plc attitude monitoring"`
	Timestamp  float64           `json:"timestamp" validate:"required"`
	RingNumber *int64            `json:"ring_number"`

	PLC        *domain.PlcPayload        `json:"plc,omitempty"`
	Attitude   *domain.AttitudePayload   `json:"attitude,omitempty"`
	Monitoring *domain.MonitoringPayload `json:"monitoring,omitempty"`
}

// manualLogRequest is the body of POST /api/v1/logs (§6: "batched
// ingestion of PLC/attitude/monitoring entries with operator
// attribution").
type manualLogRequest struct {
	Operator string            `json:"operator" validate:"required"`
	Entries  []manualLogEntry `json:"entries" validate:"required,min=1,dive"`
}

// handleManualLogs accepts a batch of operator-entered readings and hands
// each off to the buffer writer under its sensor-kind table, attributing
// the batch to the submitting operator via source_id.
func (s *Server) handleManualLogs(w http.ResponseWriter, r *http.Request) {
	var req manualLogRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	sourceID := "manual:" + req.Operator
	accepted := 0
	for _, entry := range req.Entries {
		e, err := manualLogRow(sourceID, entry)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.buffer.Add(e)
		accepted++
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": accepted})
}

func manualLogRow(sourceID string, entry manualLogEntry) (buffer.Entry, error) {
	switch entry.Kind {
	case domain.SampleKindPLC:
		if entry.PLC == nil {
			return buffer.Entry{}, apperrors.Validation("plc entry missing plc payload")
		}
		return buffer.Entry{Table: postgres.TablePLCLogs, Row: domain.PlcReading{
			SourceID:    sourceID,
			Timestamp:   entry.Timestamp,
			TagName:     entry.PLC.TagName,
			Value:       entry.PLC.Value,
			QualityFlag: domain.QualityRaw,
			RingNumber:  entry.RingNumber,
		}}, nil
	case domain.SampleKindAttitude:
		if entry.Attitude == nil {
			return buffer.Entry{}, apperrors.Validation("attitude entry missing attitude payload")
		}
		a := entry.Attitude
		return buffer.Entry{Table: postgres.TableAttitudeLogs, Row: domain.AttitudeReading{
			SourceID:            sourceID,
			Timestamp:           entry.Timestamp,
			Pitch:               a.Pitch,
			Roll:                a.Roll,
			Yaw:                 a.Yaw,
			HorizontalDeviation: a.HorizontalDeviation,
			VerticalDeviation:   a.VerticalDeviation,
			AxisDeviation:       a.AxisDeviation,
			QualityFlag:         domain.QualityRaw,
			RingNumber:          entry.RingNumber,
		}}, nil
	case domain.SampleKindMonitoring:
		if entry.Monitoring == nil {
			return buffer.Entry{}, apperrors.Validation("monitoring entry missing monitoring payload")
		}
		m := entry.Monitoring
		return buffer.Entry{Table: postgres.TableMonitoringLogs, Row: domain.MonitoringReading{
			SourceID:       sourceID,
			Timestamp:      entry.Timestamp,
			SensorType:     m.SensorType,
			SensorLocation: m.SensorLocation,
			Value:          m.Value,
			Unit:           m.Unit,
			QualityFlag:    domain.QualityRaw,
			RingNumber:     entry.RingNumber,
		}}, nil
	default:
		return buffer.Entry{}, apperrors.Validation("unknown entry kind")
	}
}
