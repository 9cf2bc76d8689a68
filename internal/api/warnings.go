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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
)

// handleListWarnings lists warnings, filtered along any combination of
// {status, level, type, indicator_name, ring_number, start_time, end_time}
// (§6).
func (s *Server) handleListWarnings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := postgres.WarningFilter{
		Status:        domain.Status(q.Get("status")),
		Level:         domain.Level(q.Get("level")),
		WarningType:   domain.WarningType(q.Get("type")),
		IndicatorName: q.Get("indicator_name"),
		RingNumber:    queryInt64Ptr(r, "ring_number"),
		StartTime:     queryFloat64Ptr(r, "start_time"),
		EndTime:       queryFloat64Ptr(r, "end_time"),
	}

	p := parsePagination(r)
	warnings, err := s.warnings.ListWarnings(r.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

// handleWarningStats returns counts grouped by status, level, and type,
// optionally restricted to a [start_time, end_time] window.
func (s *Server) handleWarningStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.warnings.Stats(r.Context(), queryFloat64Ptr(r, "start_time"), queryFloat64Ptr(r, "end_time"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetWarning retrieves a single warning event by id.
func (s *Server) handleGetWarning(w http.ResponseWriter, r *http.Request) {
	warning, err := s.warnings.GetByID(r.Context(), chi.URLParam(r, "warningID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, warning)
}

// transitionRequest is the body of an acknowledge/resolve request.
type transitionRequest struct {
	By                  string `json:"by" validate:"required"`
	Notes               string `json:"notes"`
	MarkAsFalsePositive bool   `json:"mark_as_false_positive"`
}

// handleAcknowledge moves a warning from active to acknowledged (§3).
func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, domain.StatusAcknowledged)
}

// handleResolve moves a warning to resolved, or to false_positive when the
// caller sets mark_as_false_positive (§3, §6).
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, domain.StatusResolved)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, to domain.Status) {
	var req transitionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if to == domain.StatusResolved && req.MarkAsFalsePositive {
		to = domain.StatusFalsePositive
	}

	warningID := chi.URLParam(r, "warningID")
	if err := s.warnings.Transition(r.Context(), warningID, to, req.By, req.Notes, time.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	warning, err := s.warnings.GetByID(r.Context(), warningID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, warning)
}
