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

// Package pipeline stitches the sensor pipeline together end to end: it
// is the one place that owns both directions of flow the spec describes
// separately — collector samples through the quality stages into the
// buffer writer (Ingest), and the periodic ring-boundary check that
// aggregates a completed ring's buffered readings, computes its derived
// indicators and settlement association, writes the summary, and hands
// the result to the warning engine and work order generator
// (CheckRingBoundary). Nothing else in the tree plays this role; every
// other package implements one stage in isolation.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/buffer"
	"github.com/jordigilh/tunneledge/internal/collector"
	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/metrics"
	"github.com/jordigilh/tunneledge/internal/quality/calibrate"
	"github.com/jordigilh/tunneledge/internal/quality/interpolate"
	"github.com/jordigilh/tunneledge/internal/quality/reasonableness"
	"github.com/jordigilh/tunneledge/internal/quality/threshold"
	"github.com/jordigilh/tunneledge/internal/quality/tracker"
	"github.com/jordigilh/tunneledge/internal/ring/aggregate"
	"github.com/jordigilh/tunneledge/internal/ring/boundary"
	"github.com/jordigilh/tunneledge/internal/ring/indicators"
	"github.com/jordigilh/tunneledge/internal/ring/settlement"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
)

// PLC tag names the physics snapshot and ring feature computations read
// by name. A real deployment's tag list is configuration; these are the
// fixed handles the pipeline itself needs to recognize regardless of
// what else is on the wire.
const (
	TagThrust            = "thrust_kn"
	TagPenetration       = "penetration_mm_per_min"
	TagTorque            = "torque_nm"
	TagChamberPressure   = "chamber_pressure_bar"
	TagDepth             = "depth_m"
	TagCutterheadPower   = "cutterhead_power_kw"
	TagTotalPower        = "total_power_kw"
	TagAdvanceVelocity   = "advance_velocity_m_per_min"
	TagAngularVelocity   = "angular_velocity_rad_per_min"
	TagGroutVolume       = "grout_volume_m3"
	TagTailVoidVolume    = "tail_void_volume_m3"
)

// physicsTags is every tag a reasonableness snapshot needs before the
// checker can run (§4.2: "multi-tag snapshot").
var physicsTags = []string{
	TagThrust, TagPenetration, TagTorque, TagChamberPressure,
	TagDepth, TagTotalPower, TagAdvanceVelocity, TagAngularVelocity,
}

// Config parameterizes the pipeline's quality and ring-detection
// behavior, mirroring config.QualityConfig/RingConfig's resolved values.
type Config struct {
	SampleIntervalSeconds float64
	GapToleranceSeconds   float64
	MaxGapSeconds         float64

	RingWidthMM            float64
	RingToleranceMM        float64
	TypicalDurationSeconds float64
	ShieldDiameterM        float64
	RingWidthM             float64
	AdvanceTag             string
	AssemblyTag            string
	GeologicalZone         string
}

// ReadingsSource reads back persisted readings for a completed ring's
// excavation window (§4.5).
type ReadingsSource interface {
	PLCReadingsInWindow(ctx context.Context, from, to float64) ([]domain.PlcReading, error)
	AttitudeReadingsInWindow(ctx context.Context, from, to float64) ([]domain.AttitudeReading, error)
}

// SummaryWriter upserts a finished ring's summary (§4.6).
type SummaryWriter interface {
	Write(ctx context.Context, s domain.RingSummary) error
}

// WarningEvaluator runs the warning engine's seven phases for one ring
// (§4.7).
type WarningEvaluator interface {
	EvaluateRing(ctx context.Context, ringNumber int64, zone string, indicatorValues map[string]float64, timestamp float64) ([]domain.WarningEvent, error)
}

// WorkOrderGenerator translates evaluated warnings into work orders
// (§4.9).
type WorkOrderGenerator interface {
	Generate(ctx context.Context, events []domain.WarningEvent) ([]domain.WorkOrder, error)
}

// BufferSink is the write side of the quality pipeline: every sample
// that clears quality processing lands here as a typed row (§4.3).
type BufferSink interface {
	Add(e buffer.Entry)
}

// partialSnapshot accumulates one source's physics tags until every tag
// the reasonableness checker needs has reported at least once.
type partialSnapshot struct {
	values map[string]float64
}

func newPartialSnapshot() *partialSnapshot {
	return &partialSnapshot{values: make(map[string]float64, len(physicsTags))}
}

func (p *partialSnapshot) set(tag string, v float64) {
	p.values[tag] = v
}

func (p *partialSnapshot) complete() (reasonableness.Snapshot, bool) {
	for _, tag := range physicsTags {
		if _, ok := p.values[tag]; !ok {
			return reasonableness.Snapshot{}, false
		}
	}
	return reasonableness.Snapshot{
		ThrustKN:                 p.values[TagThrust],
		PenetrationMMPerMin:      p.values[TagPenetration],
		TorqueKNm:                p.values[TagTorque],
		ChamberPressureBar:       p.values[TagChamberPressure],
		DepthM:                   p.values[TagDepth],
		PowerKW:                  p.values[TagTotalPower],
		AdvanceVelocityMPerMin:   p.values[TagAdvanceVelocity],
		AngularVelocityRadPerMin: p.values[TagAngularVelocity],
	}, true
}

// Clock returns the current time; overridden in tests.
type Clock func() time.Time

// Pipeline drives samples from the collectors through quality
// processing into the buffer, and turns a detected ring boundary into a
// persisted summary, warning evaluation, and work order generation.
type Pipeline struct {
	cfg Config

	validator      *threshold.Validator
	calibrator     *calibrate.Calibrator
	reasonableness *reasonableness.Checker
	tracker        *tracker.Tracker
	sink           BufferSink
	logger         logr.Logger
	clock          Clock

	readings   ReadingsSource
	settlement settlement.Reader
	summaries  SummaryWriter
	engine     WarningEvaluator
	workorders WorkOrderGenerator

	mu             sync.Mutex
	lastPoint      map[string]interpolate.Point
	snapshots      map[string]*partialSnapshot
	advanceSeries  []boundary.Point
	assemblySeries []boundary.BinaryPoint
	lastRingEnd    float64
	nextRing       int64
}

// New builds a Pipeline. A nil clock defaults to time.Now.
func New(
	cfg Config,
	validator *threshold.Validator,
	calibrator *calibrate.Calibrator,
	reasonablenessChecker *reasonableness.Checker,
	qualityTracker *tracker.Tracker,
	sink BufferSink,
	readings ReadingsSource,
	settlementReader settlement.Reader,
	summaries SummaryWriter,
	engine WarningEvaluator,
	workorders WorkOrderGenerator,
	clock Clock,
	logger logr.Logger,
) *Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		cfg:            cfg,
		validator:      validator,
		calibrator:     calibrator,
		reasonableness: reasonablenessChecker,
		tracker:        qualityTracker,
		sink:           sink,
		logger:         logger,
		clock:          clock,
		readings:       readings,
		settlement:     settlementReader,
		summaries:      summaries,
		engine:         engine,
		workorders:     workorders,
		lastPoint:      map[string]interpolate.Point{},
		snapshots:      map[string]*partialSnapshot{},
		nextRing:       1,
	}
}

// Sink adapts Ingest to the collector.Sink shape, logging (rather than
// propagating) ingest failures: collectors call Sink inline on their own
// goroutine and must never block or panic on a downstream error.
func (p *Pipeline) Sink() collector.Sink {
	return func(s domain.Sample) {
		if err := p.Ingest(context.Background(), s); err != nil {
			p.logger.Error(err, "sample ingest failed", "source", s.SourceID, "kind", s.Kind)
		}
	}
}

// Ingest runs one Sample through the quality pipeline and writes the
// result(s) to the buffer.
func (p *Pipeline) Ingest(ctx context.Context, s domain.Sample) error {
	metrics.RecordSample(string(s.Kind))

	switch s.Kind {
	case domain.SampleKindPLC:
		return p.ingestPLC(s)
	case domain.SampleKindAttitude:
		return p.ingestAttitude(s)
	case domain.SampleKindMonitoring:
		return p.ingestMonitoring(s)
	default:
		return nil
	}
}

func (p *Pipeline) ingestPLC(s domain.Sample) error {
	tag := s.PLC.TagName
	raw := s.PLC.Value

	valid, reason := p.validator.Validate(tag, raw)
	value := raw
	quality := domain.QualityRaw
	if calibrated, ok := p.calibrator.Apply(tag, raw, s.Timestamp); ok {
		value = calibrated
		quality = domain.QualityCalibrated
	}
	if !valid {
		quality = domain.QualityRejected
		p.tracker.RecordValidationFailure(tag, reason)
	}

	interpolated := false
	if valid {
		quality, interpolated = p.interpolateAndEmit(s.SourceID, tag, s.Timestamp, value, quality, s.RingNumber)
	} else {
		p.pushPLC(s.SourceID, s.Timestamp, tag, value, quality, s.RingNumber)
	}

	reasonablenessPassed := p.updatePhysicsSnapshot(s.SourceID, tag, value)

	p.tracker.RecordOutcome(tracker.Outcome{
		ValidationPassed:     valid,
		Interpolated:         interpolated,
		ReasonablenessPassed: reasonablenessPassed,
	})

	p.recordBoundarySignal(tag, s.Timestamp, value, quality)
	return nil
}

// interpolateAndEmit fills any gap between tag's last accepted point and
// the new one, emitting each filled point as its own row before the
// current sample (§4.2). It returns the current sample's final quality
// flag (which may become QualityMissing) and whether any interpolation
// occurred.
func (p *Pipeline) interpolateAndEmit(sourceID, tag string, timestamp, value float64, quality domain.QualityFlag, ringNumber *int64) (domain.QualityFlag, bool) {
	p.mu.Lock()
	last, hasLast := p.lastPoint[tag]
	p.mu.Unlock()

	cur := interpolate.Point{Time: timestamp, Value: value, Quality: quality}
	if !hasLast {
		p.mu.Lock()
		p.lastPoint[tag] = cur
		p.mu.Unlock()
		p.pushPLC(sourceID, timestamp, tag, value, quality, ringNumber)
		return quality, false
	}

	filled := interpolate.Interpolate([]interpolate.Point{last, cur}, interpolate.Config{
		Delta:         p.cfg.SampleIntervalSeconds,
		Tolerance:     p.cfg.GapToleranceSeconds,
		MaxGapSeconds: p.cfg.MaxGapSeconds,
	})

	interpolated := false
	for i := 1; i < len(filled); i++ {
		pt := filled[i]
		if pt.Quality == domain.QualityInterpolated {
			interpolated = true
			p.tracker.RecordInterpolation(tag)
		}
		if i < len(filled)-1 {
			p.pushPLC(sourceID, pt.Time, tag, pt.Value, pt.Quality, ringNumber)
		}
	}

	final := filled[len(filled)-1]
	p.pushPLC(sourceID, final.Time, tag, final.Value, final.Quality, ringNumber)

	p.mu.Lock()
	p.lastPoint[tag] = final
	p.mu.Unlock()

	return final.Quality, interpolated
}

func (p *Pipeline) pushPLC(sourceID string, timestamp float64, tag string, value float64, quality domain.QualityFlag, ringNumber *int64) {
	p.sink.Add(buffer.Entry{
		Table: postgres.TablePLCLogs,
		Row: domain.PlcReading{
			SourceID:    sourceID,
			Timestamp:   timestamp,
			TagName:     tag,
			Value:       value,
			QualityFlag: quality,
			RingNumber:  ringNumber,
		},
	})
}

// updatePhysicsSnapshot folds tag/value into sourceID's running physics
// snapshot and, once every tag in physicsTags has reported, runs the
// reasonableness checker and resets the snapshot for the next cycle. It
// returns true when reasonableness either passed or has not yet had a
// complete snapshot to evaluate (§4.2: reasonableness alone never
// rejects a sample, so an incomplete snapshot is not a failure).
func (p *Pipeline) updatePhysicsSnapshot(sourceID, tag string, value float64) bool {
	isPhysicsTag := false
	for _, t := range physicsTags {
		if t == tag {
			isPhysicsTag = true
			break
		}
	}
	if !isPhysicsTag {
		return true
	}

	p.mu.Lock()
	snap, ok := p.snapshots[sourceID]
	if !ok {
		snap = newPartialSnapshot()
		p.snapshots[sourceID] = snap
	}
	snap.set(tag, value)
	full, ready := snap.complete()
	if ready {
		p.snapshots[sourceID] = newPartialSnapshot()
	}
	p.mu.Unlock()

	if !ready {
		return true
	}

	failures := p.reasonableness.Check(full)
	for _, f := range failures {
		p.tracker.RecordReasonablenessFailure(f.Rule)
	}
	return len(failures) == 0
}

func (p *Pipeline) recordBoundarySignal(tag string, timestamp, value float64, quality domain.QualityFlag) {
	if quality == domain.QualityRejected || quality == domain.QualityMissing {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch tag {
	case p.cfg.AdvanceTag:
		p.advanceSeries = append(p.advanceSeries, boundary.Point{Time: timestamp, Value: value})
	case p.cfg.AssemblyTag:
		p.assemblySeries = append(p.assemblySeries, boundary.BinaryPoint{Time: timestamp, Active: value != 0})
	}
}

func (p *Pipeline) ingestAttitude(s domain.Sample) error {
	a := s.Attitude
	fields := map[string]float64{
		"pitch":                a.Pitch,
		"roll":                 a.Roll,
		"yaw":                  a.Yaw,
		"horizontal_deviation": a.HorizontalDeviation,
		"vertical_deviation":   a.VerticalDeviation,
		"axis_deviation":       a.AxisDeviation,
	}

	quality := domain.QualityRaw
	validationPassed := true
	for field, v := range fields {
		if ok, reason := p.validator.Validate(field, v); !ok {
			validationPassed = false
			quality = domain.QualityRejected
			p.tracker.RecordValidationFailure(field, reason)
		}
	}

	p.tracker.RecordOutcome(tracker.Outcome{ValidationPassed: validationPassed, ReasonablenessPassed: true})

	p.sink.Add(buffer.Entry{
		Table: postgres.TableAttitudeLogs,
		Row: domain.AttitudeReading{
			SourceID:            s.SourceID,
			Timestamp:           s.Timestamp,
			Pitch:               a.Pitch,
			Roll:                a.Roll,
			Yaw:                 a.Yaw,
			HorizontalDeviation: a.HorizontalDeviation,
			VerticalDeviation:   a.VerticalDeviation,
			AxisDeviation:       a.AxisDeviation,
			QualityFlag:         quality,
			RingNumber:          s.RingNumber,
		},
	})
	return nil
}

func (p *Pipeline) ingestMonitoring(s domain.Sample) error {
	m := s.Monitoring
	valid, reason := p.validator.Validate(m.SensorType, m.Value)
	value := m.Value
	quality := domain.QualityRaw
	if calibrated, ok := p.calibrator.Apply(m.SensorType, m.Value, s.Timestamp); ok {
		value = calibrated
		quality = domain.QualityCalibrated
	}
	if !valid {
		quality = domain.QualityRejected
		p.tracker.RecordValidationFailure(m.SensorType, reason)
	}

	p.tracker.RecordOutcome(tracker.Outcome{ValidationPassed: valid, ReasonablenessPassed: true})

	p.sink.Add(buffer.Entry{
		Table: postgres.TableMonitoringLogs,
		Row: domain.MonitoringReading{
			SourceID:       s.SourceID,
			Timestamp:      s.Timestamp,
			SensorType:     m.SensorType,
			SensorLocation: m.SensorLocation,
			Value:          value,
			Unit:           m.Unit,
			QualityFlag:    quality,
			RingNumber:     s.RingNumber,
		},
	})
	return nil
}

// CheckRingBoundary attempts to detect a completed ring from the
// accumulated advance/assembly series and, on a valid detection,
// finalizes it. Intended as a scheduler task (§4.4, §4.10).
func (p *Pipeline) CheckRingBoundary(ctx context.Context) error {
	p.mu.Lock()
	advanceCopy := append([]boundary.Point(nil), p.advanceSeries...)
	assemblyCopy := append([]boundary.BinaryPoint(nil), p.assemblySeries...)
	searchFrom := p.lastRingEnd
	previousEnd := p.lastRingEnd
	p.mu.Unlock()

	now := float64(p.clock().UnixNano()) / 1e9

	res := boundary.Detect(
		advanceCopy, assemblyCopy, searchFrom, previousEnd,
		p.cfg.RingWidthMM, p.cfg.RingToleranceMM, p.cfg.TypicalDurationSeconds, now,
	)
	metrics.RecordRingBoundaryMethod(string(res.Method))
	if !res.Valid {
		return nil
	}

	return p.finalizeRing(ctx, res)
}

func (p *Pipeline) finalizeRing(ctx context.Context, res boundary.Result) error {
	p.mu.Lock()
	ringNumber := p.nextRing
	p.nextRing++
	p.mu.Unlock()

	plcRows, err := p.readings.PLCReadingsInWindow(ctx, res.Start, res.End)
	if err != nil {
		return err
	}
	attitudeRows, err := p.readings.AttitudeReadingsInWindow(ctx, res.Start, res.End)
	if err != nil {
		return err
	}

	plcStats := aggregate.PLCTags(plcRows)
	attitudeStats := aggregate.Attitude(attitudeRows)

	settlementAssoc, err := settlement.Associate(
		p.settlement, res.End, settlement.DefaultLagMinHours, settlement.DefaultLagMaxHours, nil, nil,
	)
	if err != nil {
		p.logger.Error(err, "settlement association failed", "ring_number", ringNumber)
	}

	durationHours := (res.End - res.Start) / 3600.0
	shieldDiameter := p.cfg.ShieldDiameterM
	ringWidth := p.cfg.RingWidthM

	derived := indicators.Compute(indicators.Inputs{
		MeanPowerKW:       meanOf(plcStats, TagTotalPower),
		DurationHours:     &durationHours,
		ShieldDiameterM:   &shieldDiameter,
		RingWidthM:        &ringWidth,
		GroutVolumeM3:     meanOf(plcStats, TagGroutVolume),
		TailVoidVolumeM3:  meanOf(plcStats, TagTailVoidVolume),
		MeanTorqueNm:      meanOf(plcStats, TagTorque),
		MeanThrustKN:      meanOf(plcStats, TagThrust),
		MeanPenetrationMM: meanOf(plcStats, TagPenetration),
		CutterheadPowerKW: meanOf(plcStats, TagCutterheadPower),
		TotalPowerKW:      meanOf(plcStats, TagTotalPower),
	})

	zone := p.cfg.GeologicalZone
	summary := domain.RingSummary{
		RingNumber:     ringNumber,
		StartTime:      res.Start,
		EndTime:        res.End,
		PLCFeatures:    plcStats,
		Attitude:       attitudeStats,
		Indicators:     derived,
		Settlement:     settlementAssoc,
		GeologicalZone: &zone,
	}
	if err := p.summaries.Write(ctx, summary); err != nil {
		return err
	}

	indicatorValues := indicatorValueMap(derived, settlementAssoc)
	events, err := p.engine.EvaluateRing(ctx, ringNumber, zone, indicatorValues, res.End)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		if _, err := p.workorders.Generate(ctx, events); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.lastRingEnd = res.End
	p.advanceSeries = truncateAdvance(p.advanceSeries, res.End)
	p.assemblySeries = truncateAssembly(p.assemblySeries, res.End)
	p.mu.Unlock()

	return nil
}

func meanOf(stats map[string]domain.Stats, tag string) *float64 {
	s, ok := stats[tag]
	if !ok {
		return nil
	}
	mean := s.Mean
	return &mean
}

// indicatorValueMap projects a ring's derived indicators and settlement
// value into the flat (indicator_name -> value) map the warning engine
// and work order rule table key on (§4.7, §4.9).
func indicatorValueMap(d domain.DerivedIndicators, settlementAssoc domain.SettlementAssociation) map[string]float64 {
	out := map[string]float64{}
	add := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	add("specific_energy", d.SpecificEnergy)
	add("ground_loss_rate", d.GroundLossRate)
	add("volume_loss_ratio", d.VolumeLossRatio)
	add("torque_thrust_ratio", d.TorqueThrustRatio)
	add("penetration_efficiency", d.PenetrationEfficiency)
	add("power_efficiency", d.PowerEfficiency)
	add("settlement_value", settlementAssoc.Value)
	return out
}

func truncateAdvance(series []boundary.Point, since float64) []boundary.Point {
	out := series[:0:0]
	for _, p := range series {
		if p.Time >= since {
			out = append(out, p)
		}
	}
	return out
}

func truncateAssembly(series []boundary.BinaryPoint, since float64) []boundary.BinaryPoint {
	out := series[:0:0]
	for _, p := range series {
		if p.Time >= since {
			out = append(out, p)
		}
	}
	return out
}
