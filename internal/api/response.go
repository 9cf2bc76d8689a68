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

// Package api implements the REST query surface (§6): rings, warnings
// (with lifecycle transitions and statistics), predictions, manual log
// ingestion, and health, mounted under /api/v1 on a chi.Router.
package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jordigilh/tunneledge/internal/errors"
)

// decodeAndValidate reads r's JSON body into dst, validates it with the
// server's validator, and writes the appropriate error response on
// failure. It returns true only when dst is ready to use.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "malformed request body"))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "request validation failed"))
		return false
	}
	return true
}

// errorBody is the structured failure shape every endpoint returns on
// error (§7: "structured {error, message, path} bodies").
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a structured JSON body, mapping an *AppError
// to its fixed status code and falling back to 500 for anything else.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	if ae, ok := err.(*apperrors.AppError); ok {
		status = ae.StatusCode
		message = ae.Message
	}

	writeJSON(w, status, errorBody{
		Error:   statusToErrorCode(status),
		Message: message,
		Path:    r.URL.Path,
	})
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	default:
		return "internal_error"
	}
}
