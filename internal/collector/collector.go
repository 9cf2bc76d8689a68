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

// Package collector holds the contract shared by the three sensor
// collector variants (§4.1): a subscription collector for PLC tags, a
// fixed-interval polling collector for guidance registers, and an
// HTTP polling collector for geotechnical monitoring endpoints. Each
// variant lives in its own subpackage; this package only fixes the
// shape they all present to the rest of the pipeline.
package collector

import (
	"sync"
	"time"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// Sink receives Samples emitted by a collector. The quality pipeline
// owns the concrete implementation (Pipeline.Sink, which runs each sample
// through Ingest inline); collectors only ever call the Sink.
type Sink func(domain.Sample)

// ErrorReporter receives a non-fatal error from a collector, tagged with
// the collector's name. It must not block or panic: a collector calls
// it inline on its own goroutine, and a slow reporter would delay the
// next poll/reconnect.
type ErrorReporter func(collector string, err error)

// Status is the collector's exposed operating-point view (§4.1c).
type Status struct {
	Running         bool
	Connected       bool
	LastSuccessTime time.Time
}

// StatusTracker is embedded by each collector variant to provide a
// thread-safe Status() method without repeating the same mutex/fields
// in every variant.
type StatusTracker struct {
	mu     sync.RWMutex
	status Status
}

// SetRunning updates the running flag.
func (t *StatusTracker) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = running
}

// SetConnected updates the connected flag.
func (t *StatusTracker) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Connected = connected
}

// RecordSuccess marks a successful read/poll at the given time.
func (t *StatusTracker) RecordSuccess(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Connected = true
	t.status.LastSuccessTime = at
}

// Status returns a snapshot of the tracked status.
func (t *StatusTracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
