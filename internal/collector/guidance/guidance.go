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

// Package guidance implements the polling collector (§4.1): it reads a
// fixed set of register groups at a fixed interval (default 1 s) and,
// when every required field reads cleanly, emits one AttitudeReading
// per completed poll. A partial read (any required field failing)
// produces no sample at all for that tick.
package guidance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jordigilh/tunneledge/internal/collector"
	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
)

// DefaultPollInterval is the spec default for the guidance poll loop.
const DefaultPollInterval = time.Second

// RegisterType selects how a register group's raw 16-bit words decode
// into a float64 (§4.1: "int16/uint16/int32/float32 big-endian").
type RegisterType string

const (
	Int16   RegisterType = "int16"
	UInt16  RegisterType = "uint16"
	Int32   RegisterType = "int32"
	Float32 RegisterType = "float32"
)

// RegisterSpec locates and types one register group.
type RegisterSpec struct {
	Address uint16
	Count   uint16 // 1 for int16/uint16, 2 for int32/float32
	Type    RegisterType
}

// RegisterMap names the six fields AttitudeReading requires, each
// located at its own register group.
type RegisterMap struct {
	Pitch               RegisterSpec
	Roll                RegisterSpec
	Yaw                 RegisterSpec
	HorizontalDeviation RegisterSpec
	VerticalDeviation   RegisterSpec
	AxisDeviation       RegisterSpec
}

// RegisterReader is the register-group transport a Collector polls.
// ReadRegisters returns count big-endian 16-bit words starting at
// address.
type RegisterReader interface {
	Connect(ctx context.Context) error
	ReadRegisters(ctx context.Context, address, count uint16) ([]uint16, error)
}

// Collector polls a RegisterReader on a fixed interval and emits
// complete AttitudeReading samples.
type Collector struct {
	collector.StatusTracker

	name     string
	client   RegisterReader
	regs     RegisterMap
	interval time.Duration
	sink     collector.Sink
	report   collector.ErrorReporter
}

// New builds a Collector. A zero interval defaults to DefaultPollInterval.
func New(name string, client RegisterReader, regs RegisterMap, interval time.Duration, sink collector.Sink, report collector.ErrorReporter) *Collector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Collector{
		name:     name,
		client:   client,
		regs:     regs,
		interval: interval,
		sink:     sink,
		report:   report,
	}
}

// Run polls on c.interval until ctx is canceled, returning within one
// poll interval of cancellation (§4.1a).
func (c *Collector) Run(ctx context.Context) error {
	c.SetRunning(true)
	defer c.SetRunning(false)
	defer c.SetConnected(false)

	if err := c.client.Connect(ctx); err != nil {
		c.reportConnectError(err)
	} else {
		c.SetConnected(true)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.pollOnce(ctx, now)
		}
	}
}

func (c *Collector) pollOnce(ctx context.Context, now time.Time) {
	reading, err := c.readAll(ctx)
	if err != nil {
		c.SetConnected(false)
		metrics.SetCollectorConnected(c.name, false)
		metrics.RecordCollectorError(c.name, "poll")
		if c.report != nil {
			c.report(c.name, fmt.Errorf("guidance poll %s: %w", c.name, err))
		}
		return
	}

	c.RecordSuccess(now)
	metrics.SetCollectorConnected(c.name, true)
	metrics.RecordCollectorSample(c.name)

	c.sink(domain.Sample{
		SourceID:    c.name,
		Timestamp:   float64(now.UnixNano()) / 1e9,
		Kind:        domain.SampleKindAttitude,
		QualityFlag: domain.QualityRaw,
		Attitude:    &reading,
	})
}

func (c *Collector) readAll(ctx context.Context) (domain.AttitudePayload, error) {
	var reading domain.AttitudePayload
	var err error

	if reading.Pitch, err = c.readOne(ctx, "pitch", c.regs.Pitch); err != nil {
		return reading, err
	}
	if reading.Roll, err = c.readOne(ctx, "roll", c.regs.Roll); err != nil {
		return reading, err
	}
	if reading.Yaw, err = c.readOne(ctx, "yaw", c.regs.Yaw); err != nil {
		return reading, err
	}
	if reading.HorizontalDeviation, err = c.readOne(ctx, "horizontal_deviation", c.regs.HorizontalDeviation); err != nil {
		return reading, err
	}
	if reading.VerticalDeviation, err = c.readOne(ctx, "vertical_deviation", c.regs.VerticalDeviation); err != nil {
		return reading, err
	}
	if reading.AxisDeviation, err = c.readOne(ctx, "axis_deviation", c.regs.AxisDeviation); err != nil {
		return reading, err
	}
	return reading, nil
}

func (c *Collector) readOne(ctx context.Context, field string, spec RegisterSpec) (float64, error) {
	raw, err := c.client.ReadRegisters(ctx, spec.Address, spec.Count)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", field, err)
	}
	return decode(spec, raw)
}

func (c *Collector) reportConnectError(err error) {
	metrics.RecordCollectorError(c.name, "connect")
	if c.report != nil {
		c.report(c.name, fmt.Errorf("guidance connect %s: %w", c.name, err))
	}
}

// decode interprets a register group's raw big-endian words per its
// type. int32/float32 groups carry two words, high word first.
func decode(spec RegisterSpec, raw []uint16) (float64, error) {
	switch spec.Type {
	case Int16:
		if len(raw) < 1 {
			return 0, fmt.Errorf("int16 register group returned %d words, want 1", len(raw))
		}
		return float64(int16(raw[0])), nil
	case UInt16:
		if len(raw) < 1 {
			return 0, fmt.Errorf("uint16 register group returned %d words, want 1", len(raw))
		}
		return float64(raw[0]), nil
	case Int32:
		if len(raw) < 2 {
			return 0, fmt.Errorf("int32 register group returned %d words, want 2", len(raw))
		}
		bits := uint32(raw[0])<<16 | uint32(raw[1])
		return float64(int32(bits)), nil
	case Float32:
		if len(raw) < 2 {
			return 0, fmt.Errorf("float32 register group returned %d words, want 2", len(raw))
		}
		bits := uint32(raw[0])<<16 | uint32(raw[1])
		return float64(math.Float32frombits(bits)), nil
	default:
		return 0, fmt.Errorf("unknown register type %q", spec.Type)
	}
}
