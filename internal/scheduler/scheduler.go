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

// Package scheduler implements the interval-based task supervisor
// (§4.10): named tasks register with their own interval; each tick
// dispatches every due task in parallel and re-schedules it immediately,
// so one slow task never delays another's next dispatch.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/metrics"
)

// TaskFunc is a registered unit of work. Its own duration does not delay
// its next scheduled dispatch (§4.10).
type TaskFunc func(ctx context.Context) error

// DefaultTickInterval bounds how often the scheduler checks for due
// tasks (§5: "Scheduler sleep between ticks (≤ 1 s)").
const DefaultTickInterval = 1 * time.Second

// Stats is a task's exposed operating-point view (§4.10).
type Stats struct {
	RunCount  int
	ErrorCount int
	LastRun   time.Time
	LastError error
}

type task struct {
	name     string
	fn       TaskFunc
	interval time.Duration
	enabled  bool
	nextRun  time.Time
	stats    Stats
}

// Scheduler dispatches due tasks on a fixed tick, running each due task
// on its own goroutine so a slow task never starves the others.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
	tick  time.Duration
	clock func() time.Time
	logger logr.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Scheduler with the given tick interval. A zero tick
// defaults to DefaultTickInterval.
func New(tick time.Duration, logger logr.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Scheduler{
		tasks:  make(map[string]*task),
		tick:   tick,
		clock:  time.Now,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Register adds a named task running every interval, starting on the
// next tick. Re-registering an existing name replaces its fn and
// interval but preserves its counters.
func (s *Scheduler) Register(name string, fn TaskFunc, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		existing.fn = fn
		existing.interval = interval
		return
	}
	s.tasks[name] = &task{
		name:     name,
		fn:       fn,
		interval: interval,
		enabled:  true,
		nextRun:  s.clock(),
	}
}

// SetEnabled enables or disables a registered task without unregistering
// it, so its counters survive a pause.
func (s *Scheduler) SetEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		t.enabled = enabled
	}
}

// SetInterval changes a registered task's interval at runtime.
func (s *Scheduler) SetInterval(name string, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		t.interval = interval
	}
}

// Stats returns a snapshot of a task's counters.
func (s *Scheduler) Stats(name string) (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return Stats{}, false
	}
	return t.stats, true
}

// Run blocks, ticking every s.tick until ctx is canceled or Stop is
// called. On return, in-flight dispatches from the last tick have
// already been awaited (§5 shutdown step 3: "Stop the scheduler; await
// in-flight ticks.").
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-s.stop:
			s.wg.Wait()
			return
		case now := <-ticker.C:
			s.dispatchDue(ctx, now)
		}
	}
}

// Stop signals Run to exit after awaiting the in-flight tick.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.enabled && !now.Before(t.nextRun) {
			t.nextRun = now.Add(t.interval)
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t := t
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOne(ctx, t, now)
		}()
	}
}

func (s *Scheduler) runOne(ctx context.Context, t *task, now time.Time) {
	err := t.fn(ctx)

	s.mu.Lock()
	t.stats.RunCount++
	t.stats.LastRun = now
	if err != nil {
		t.stats.ErrorCount++
		t.stats.LastError = err
	}
	s.mu.Unlock()

	metrics.RecordSchedulerRun(t.name)
	if err != nil {
		metrics.RecordSchedulerError(t.name)
		s.logger.Error(err, "scheduled task failed", "task", t.name)
	}
}
