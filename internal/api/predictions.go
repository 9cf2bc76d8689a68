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

	apperrors "github.com/jordigilh/tunneledge/internal/errors"
	"github.com/jordigilh/tunneledge/internal/warning/predictive"
)

// handleLatestPrediction returns the most recent forecast the predictive
// check (§4.7 Phase 3) produced for one indicator on one ring.
func (s *Server) handleLatestPrediction(w http.ResponseWriter, r *http.Request) {
	indicatorName := chi.URLParam(r, "indicatorName")
	ringNumber, err := strconv.ParseInt(chi.URLParam(r, "ringNumber"), 10, 64)
	if err != nil {
		writeError(w, r, apperrors.Validation("ringNumber must be an integer"))
		return
	}

	prediction, ok, err := s.predictions.LatestPrediction(r.Context(), indicatorName, ringNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, apperrors.NotFound("no prediction available for this indicator and ring"))
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

// latestPredictionResponse carries the ring the forecast was produced for,
// since the no-ring lookup doesn't have one in the request to echo back.
type latestPredictionResponse struct {
	predictive.Prediction
	RingNumber int64 `json:"ring_number"`
}

// handleLatestPredictionForIndicator returns the most recent forecast for
// an indicator across all rings (§6 "Predictions: latest ... lookups").
func (s *Server) handleLatestPredictionForIndicator(w http.ResponseWriter, r *http.Request) {
	indicatorName := chi.URLParam(r, "indicatorName")

	prediction, ringNumber, ok, err := s.predictions.Latest(r.Context(), indicatorName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, apperrors.NotFound("no prediction available for this indicator"))
		return
	}
	writeJSON(w, http.StatusOK, latestPredictionResponse{Prediction: prediction, RingNumber: ringNumber})
}
