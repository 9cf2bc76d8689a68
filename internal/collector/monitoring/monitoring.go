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

// Package monitoring implements the HTTP polling collector (§4.1): one
// independent polling loop per configured endpoint, each fetching a
// sensor payload on its own interval and retrying with exponential
// backoff (2^n seconds, capped at 30s) up to a configured attempt
// count before surrendering that poll cycle.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/itchyny/gojq"

	"github.com/jordigilh/tunneledge/internal/collector"
	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
)

// MaxBackoffInterval caps the exponential retry delay (§4.1).
const MaxBackoffInterval = 30 * time.Second

// Endpoint configures one independently polled monitoring source.
type Endpoint struct {
	Name         string
	URL          string
	PollInterval time.Duration
	MaxAttempts  int
	BearerToken  string
}

// sensorItem is one sensor reading as it appears in either response
// shape (a bare list or the sensors/readings envelope).
type sensorItem struct {
	SensorType     string  `json:"sensor_type"`
	SensorLocation string  `json:"sensor_location"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
}

// envelopeQuery extracts the sensor list regardless of which of the two
// response shapes an endpoint uses: a bare list falls through both
// field lookups (indexing an array by name errors, which // catches)
// and resolves to the document itself.
var envelopeQuery = mustParseQuery(".sensors // .readings // .")

func mustParseQuery(src string) *gojq.Query {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(err)
	}
	return q
}

// Collector polls one Endpoint on its own goroutine via Run.
type Collector struct {
	collector.StatusTracker

	name           string
	endpoint       Endpoint
	http           *http.Client
	sink           collector.Sink
	report         collector.ErrorReporter
	backoffInitial time.Duration
}

// New builds a Collector for one endpoint.
func New(endpoint Endpoint, httpClient *http.Client, sink collector.Sink, report collector.ErrorReporter) *Collector {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	interval := endpoint.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	endpoint.PollInterval = interval
	if endpoint.MaxAttempts <= 0 {
		endpoint.MaxAttempts = 1
	}
	return &Collector{
		name:           endpoint.Name,
		endpoint:       endpoint,
		http:           httpClient,
		sink:           sink,
		report:         report,
		backoffInitial: time.Second,
	}
}

// Run polls c.endpoint until ctx is canceled, returning within one poll
// interval of cancellation (§4.1a). Each tick's failed attempts are
// retried with exponential backoff before the tick is abandoned.
func (c *Collector) Run(ctx context.Context) error {
	c.SetRunning(true)
	defer c.SetRunning(false)
	defer c.SetConnected(false)

	ticker := time.NewTicker(c.endpoint.PollInterval)
	defer ticker.Stop()

	c.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Collector) pollOnce(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffInitial
	bo.Multiplier = 2
	bo.MaxInterval = MaxBackoffInterval
	bo.RandomizationFactor = 0

	items, err := backoff.Retry(ctx, func() ([]sensorItem, error) {
		return c.fetch(ctx)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(c.endpoint.MaxAttempts)))

	if err != nil {
		c.SetConnected(false)
		metrics.SetCollectorConnected(c.name, false)
		metrics.RecordCollectorError(c.name, "fetch")
		if c.report != nil {
			c.report(c.name, fmt.Errorf("monitoring poll %s: %w", c.name, err))
		}
		return
	}

	now := time.Now()
	c.RecordSuccess(now)
	metrics.SetCollectorConnected(c.name, true)

	for _, item := range items {
		metrics.RecordCollectorSample(c.name)
		c.sink(domain.Sample{
			SourceID:    c.name,
			Timestamp:   float64(now.UnixNano()) / 1e9,
			Kind:        domain.SampleKindMonitoring,
			QualityFlag: domain.QualityRaw,
			Monitoring: &domain.MonitoringPayload{
				SensorType:     item.SensorType,
				SensorLocation: item.SensorLocation,
				Value:          item.Value,
				Unit:           item.Unit,
			},
		})
	}
}

func (c *Collector) fetch(ctx context.Context) ([]sensorItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.endpoint.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.endpoint.BearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", c.endpoint.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint %s returned status %d", c.endpoint.Name, resp.StatusCode)
	}

	return parseItems(body)
}

// parseItems accepts either a bare JSON list of sensor items or a
// {sensors|readings: [...]} envelope (§4.1), using envelopeQuery to
// paper over which shape a given endpoint actually sends.
func parseItems(body []byte) ([]sensorItem, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	iter := envelopeQuery.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("envelope query produced no result")
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("evaluating envelope query: %w", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling sensor list: %w", err)
	}
	var items []sensorItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding sensor items: %w", err)
	}
	return items, nil
}
