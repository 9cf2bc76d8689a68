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

// Package plc implements the subscription collector (§4.1): it
// subscribes once to a fixed set of PLC tags on a server-push protocol
// and emits a Sample on every data-change notification. Transport
// failures are handled with a fixed 5-second reconnect cooldown,
// re-establishing every subscription from scratch on reconnect.
package plc

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jordigilh/tunneledge/internal/collector"
	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
)

// ReconnectDelay is the fixed cooldown between subscription attempts
// after a transport failure (§4.1).
const ReconnectDelay = 5 * time.Second

// ChangeHandler is invoked once per data-change notification.
type ChangeHandler func(tag string, value float64, ts time.Time)

// TagSubscriber is the server-push transport a Collector drives. Run
// connects, subscribes to tags, and invokes onChange for every
// notification; it blocks until ctx is canceled or the subscription
// breaks, in which case it returns a non-nil error so the Collector
// knows to reconnect.
type TagSubscriber interface {
	Run(ctx context.Context, tags []string, onChange ChangeHandler) error
}

// Collector drives one TagSubscriber over its reconnect lifecycle,
// projecting each notification into a domain.Sample on Sink.
type Collector struct {
	collector.StatusTracker

	name    string
	client  TagSubscriber
	tags    []string
	sink    collector.Sink
	report  collector.ErrorReporter
	breaker *gobreaker.CircuitBreaker[any]
	delay   time.Duration
}

// New builds a Collector. name identifies it in metrics and error
// reports (§4.1's "structured error report").
func New(name string, client TagSubscriber, tags []string, sink collector.Sink, report collector.ErrorReporter) *Collector {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCollectorConnected(name, to == gobreaker.StateClosed)
		},
	})
	return &Collector{
		name:    name,
		client:  client,
		tags:    tags,
		sink:    sink,
		report:  report,
		breaker: breaker,
		delay:   ReconnectDelay,
	}
}

// Run drives the subscribe/reconnect loop until ctx is canceled. It
// returns within one reconnect cooldown of cancellation (§4.1a).
func (c *Collector) Run(ctx context.Context) error {
	c.SetRunning(true)
	defer c.SetRunning(false)
	defer c.SetConnected(false)

	for {
		if ctx.Err() != nil {
			return nil
		}

		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.client.Run(ctx, c.tags, c.handleChange)
		})
		c.SetConnected(false)
		metrics.SetCollectorConnected(c.name, false)

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			metrics.RecordCollectorError(c.name, "subscription")
			if c.report != nil {
				c.report(c.name, fmt.Errorf("plc subscription %s: %w", c.name, err))
			}
		}
		metrics.RecordCollectorReconnect(c.name)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.delay):
		}
	}
}

func (c *Collector) handleChange(tag string, value float64, ts time.Time) {
	c.RecordSuccess(time.Now())
	metrics.SetCollectorConnected(c.name, true)
	metrics.RecordCollectorSample(c.name)

	c.sink(domain.Sample{
		SourceID:    c.name,
		Timestamp:   float64(ts.UnixNano()) / 1e9,
		Kind:        domain.SampleKindPLC,
		QualityFlag: domain.QualityRaw,
		PLC: &domain.PlcPayload{
			TagName: tag,
			Value:   value,
		},
	})
}
