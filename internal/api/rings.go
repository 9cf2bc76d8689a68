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
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jordigilh/tunneledge/internal/domain"
	apperrors "github.com/jordigilh/tunneledge/internal/errors"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
)

// ringsListResponse is the {total, page, page_size, total_pages, rings[]}
// envelope §6 mandates for the ring listing resource.
type ringsListResponse struct {
	pageEnvelope
	Rings []domain.RingSummary `json:"rings"`
}

func parseRingFilter(r *http.Request) postgres.RingFilter {
	q := r.URL.Query()
	return postgres.RingFilter{
		Completeness:   domain.Completeness(q.Get("completeness")),
		GeologicalZone: q.Get("geological_zone"),
		StartRing:      queryInt64Ptr(r, "start_ring"),
		EndRing:        queryInt64Ptr(r, "end_ring"),
		Sort:           q.Get("sort"),
		Descending:     q.Get("order") != "asc",
	}
}

// handleListRings returns ring summaries, paginated, sorted, and filtered
// per §6 (sort by one of {ring_number, start_time, created_at} in
// asc|desc; filters {completeness, geological_zone, start_ring, end_ring}).
func (s *Server) handleListRings(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	filter := parseRingFilter(r)

	rings, err := s.rings.ListRingSummaries(r.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := s.rings.CountRingSummaries(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ringsListResponse{pageEnvelope: newPageEnvelope(p, total), Rings: rings})
}

// handleGetRing returns a single ring's full summary.
func (s *Server) handleGetRing(w http.ResponseWriter, r *http.Request) {
	ringNumber, err := parseRingNumber(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ring, err := s.rings.GetRingSummary(r.Context(), ringNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ring)
}

// rawRingDataResponse is the per-type reading slice set §6 mandates for
// the raw ring data resource, each capped at 10 000 points by the
// repository layer.
type rawRingDataResponse struct {
	RingNumber int64                      `json:"ring_number"`
	PLC        []domain.PlcReading        `json:"plc"`
	Attitude   []domain.AttitudeReading   `json:"attitude"`
	Monitoring []domain.MonitoringReading `json:"monitoring"`
}

// handleGetRawRingData returns the raw plc/attitude/monitoring readings
// tagged to one ring (§6 "Get raw ring data").
func (s *Server) handleGetRawRingData(w http.ResponseWriter, r *http.Request) {
	ringNumber, err := parseRingNumber(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	plc, err := s.readings.PLCReadingsForRing(r.Context(), ringNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attitude, err := s.readings.AttitudeReadingsForRing(r.Context(), ringNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	monitoring, err := s.readings.MonitoringReadingsForRing(r.Context(), ringNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rawRingDataResponse{
		RingNumber: ringNumber,
		PLC:        plc,
		Attitude:   attitude,
		Monitoring: monitoring,
	})
}

func parseRingNumber(r *http.Request) (int64, error) {
	ringNumber, err := strconv.ParseInt(chi.URLParam(r, "ringNumber"), 10, 64)
	if err != nil {
		return 0, apperrors.Validation("ringNumber must be an integer")
	}
	return ringNumber, nil
}
