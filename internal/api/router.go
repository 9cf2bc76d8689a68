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
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/buffer"
	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
	"github.com/jordigilh/tunneledge/internal/warning/predictive"
)

// RingRepository is the ring-query port the API surface depends on.
type RingRepository interface {
	GetRingSummary(ctx context.Context, ringNumber int64) (domain.RingSummary, error)
	ListRingSummaries(ctx context.Context, filter postgres.RingFilter, limit, offset int) ([]domain.RingSummary, error)
	CountRingSummaries(ctx context.Context, filter postgres.RingFilter) (int, error)
}

// RawReadingsRepository is the per-ring raw sensor data port (§6 "Get raw
// ring data"), satisfied directly by *postgres.ReadingsRepository.
type RawReadingsRepository interface {
	PLCReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.PlcReading, error)
	AttitudeReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.AttitudeReading, error)
	MonitoringReadingsForRing(ctx context.Context, ringNumber int64) ([]domain.MonitoringReading, error)
}

// WarningRepository is the warning-query and lifecycle port. It is
// satisfied directly by *postgres.WarningRepository; the query API is
// the one layer in this service thin enough not to warrant its own
// filter/stats DTOs duplicating storage's.
type WarningRepository interface {
	GetByID(ctx context.Context, warningID string) (domain.WarningEvent, error)
	ListWarnings(ctx context.Context, filter postgres.WarningFilter, limit, offset int) ([]domain.WarningEvent, error)
	Transition(ctx context.Context, warningID string, to domain.Status, by, notes string, at time.Time) error
	Stats(ctx context.Context, startTime, endTime *float64) (postgres.Stats, error)
}

// PredictionRepository is the prediction-query port.
type PredictionRepository interface {
	LatestPrediction(ctx context.Context, indicatorName string, ringNumber int64) (predictive.Prediction, bool, error)
	Latest(ctx context.Context, indicatorName string) (predictive.Prediction, int64, bool, error)
}

// Prober is one named health sub-check (Postgres ping, Redis ping,
// collector status, ...). It must respect ctx's deadline (§6.1).
type Prober func(ctx context.Context) error

// Server wires the query API's dependencies and exposes its chi.Router.
type Server struct {
	rings       RingRepository
	readings    RawReadingsRepository
	warnings    WarningRepository
	predictions PredictionRepository
	buffer      *buffer.Writer
	probes      map[string]Prober
	validate    *validator.Validate
	logger      logr.Logger
}

// New builds a Server. probes is consulted by /health/detailed, each
// wrapped in its own 1s timeout (§6.1).
func New(rings RingRepository, readings RawReadingsRepository, warnings WarningRepository, predictions PredictionRepository, buf *buffer.Writer, probes map[string]Prober, logger logr.Logger) *Server {
	return &Server{
		rings:       rings,
		readings:    readings,
		warnings:    warnings,
		predictions: predictions,
		buffer:      buf,
		probes:      probes,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Router builds the chi.Router mounted under /api/v1, plus /health at
// the root (§6.1).
func (s *Server) Router(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/health/detailed", s.handleHealthDetailed)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rings", func(r chi.Router) {
			r.Get("/", s.handleListRings)
			r.Get("/{ringNumber}", s.handleGetRing)
			r.Get("/{ringNumber}/raw", s.handleGetRawRingData)
		})
		r.Route("/warnings", func(r chi.Router) {
			r.Get("/", s.handleListWarnings)
			r.Get("/stats", s.handleWarningStats)
			r.Get("/{warningID}", s.handleGetWarning)
			r.Post("/{warningID}/acknowledge", s.handleAcknowledge)
			r.Post("/{warningID}/resolve", s.handleResolve)
		})
		r.Get("/predictions/{indicatorName}/{ringNumber}", s.handleLatestPrediction)
		r.Get("/predictions/{indicatorName}", s.handleLatestPredictionForIndicator)
		r.Post("/logs", s.handleManualLogs)
	})

	return r
}
