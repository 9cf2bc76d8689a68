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

// Package logging builds the single *zap.Logger construction path for the
// service. Every component receives a *zap.Logger (or a go-logr/logr.Logger
// adapted from one via zapr, for packages that talk to logr-shaped
// dependencies) at construction time; there are no package-level loggers.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the process-wide logger, matching the
// logging.{level,format} section of the YAML config (§4.11).
type Config struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

// New builds a *zap.Logger from Config. Production deployments use
// Format: "json"; local/dev runs use "console" for readability, matching
// the teacher's logging section shape.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// AsLogr adapts a *zap.Logger to a go-logr/logr.Logger for components that
// were written against the logr interface (e.g. the pipeline and the
// notification router).
func AsLogr(l *zap.Logger) logr.Logger {
	return zapr.NewLogger(l)
}
