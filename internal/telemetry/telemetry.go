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

// Package telemetry wraps the OTel tracer the warning engine (and
// anything else that wants one) spans its work with, so callers never
// reach for go.opentelemetry.io/otel directly.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tunneledge"

// Tracer returns the package-wide tracer. It is resolved from the global
// provider on every call, so tests can swap in a provider via
// otel.SetTracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named name with the given attributes, under
// Tracer(). Callers are responsible for ending the returned span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed and attaches err, matching the single
// place every span-producing component reports a failure (mirrors the
// warning engine's own logr.Error call sites, just on the span instead of
// the logger).
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RingAttributes builds the attribute set every ring-scoped span carries.
func RingAttributes(ringNumber int64, zone string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("ring.number", ringNumber),
		attribute.String("ring.zone", zone),
	}
}
