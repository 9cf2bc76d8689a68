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

// Package domain holds the core, transport-agnostic types shared by every
// stage of the ring pipeline: samples as they travel the quality pipeline,
// and the durable entities the aligner and warning engine persist.
package domain

// SampleKind identifies which sensor family a Sample originated from.
type SampleKind string

const (
	SampleKindPLC        SampleKind = "plc"
	SampleKindAttitude   SampleKind = "attitude"
	SampleKindMonitoring SampleKind = "monitoring"
)

// QualityFlag records how far a Sample has progressed through the quality
// pipeline. Flags only ever move forward along qualityRank; see CanTransition.
type QualityFlag string

const (
	QualityRaw          QualityFlag = "raw"
	QualityInterpolated QualityFlag = "interpolated"
	QualityCalibrated   QualityFlag = "calibrated"
	QualityRejected     QualityFlag = "rejected"
	QualityMissing      QualityFlag = "missing"
)

// qualityRank gives the quality flags a total order so a downgrade can be
// detected. rejected/missing are terminal: once set, no further stage may
// move a sample out of them.
var qualityRank = map[QualityFlag]int{
	QualityRaw:          0,
	QualityInterpolated: 1,
	QualityCalibrated:   2,
	QualityRejected:     3,
	QualityMissing:      3,
}

// CanTransition reports whether a sample may move from 'from' to 'to'
// without violating the "quality_flag never downgrades" invariant (§3).
// Terminal flags (rejected, missing) never transition further.
func CanTransition(from, to QualityFlag) bool {
	if from == QualityRejected || from == QualityMissing {
		return from == to
	}
	return qualityRank[to] >= qualityRank[from]
}

// Sample is the transient envelope that carries one reading through the
// quality pipeline into the buffer writer. It is never persisted directly;
// each SampleKind has its own durable row shape (see PlcReading,
// AttitudeReading, MonitoringReading).
type Sample struct {
	SourceID    string
	Timestamp   float64
	Kind        SampleKind
	QualityFlag QualityFlag
	RingNumber  *int64

	PLC        *PlcPayload
	Attitude   *AttitudePayload
	Monitoring *MonitoringPayload
}

// PlcPayload is the kind-specific payload of a PLC Sample.
type PlcPayload struct {
	TagName string  `json:"tag_name"`
	Value   float64 `json:"value"`
}

// AttitudePayload is the kind-specific payload of a guidance Sample.
type AttitudePayload struct {
	Pitch               float64 `json:"pitch"`
	Roll                float64 `json:"roll"`
	Yaw                 float64 `json:"yaw"`
	HorizontalDeviation float64 `json:"horizontal_deviation"`
	VerticalDeviation   float64 `json:"vertical_deviation"`
	AxisDeviation       float64 `json:"axis_deviation"`
}

// MonitoringPayload is the kind-specific payload of a geotechnical Sample.
type MonitoringPayload struct {
	SensorType     string  `json:"sensor_type"`
	SensorLocation string  `json:"sensor_location"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
}

// PlcReading is the durable row shape a PLC Sample is projected into once
// it clears the buffer writer.
type PlcReading struct {
	ID          int64       `json:"id"`
	SourceID    string      `json:"source_id"`
	Timestamp   float64     `json:"timestamp"`
	TagName     string      `json:"tag_name"`
	Value       float64     `json:"value"`
	QualityFlag QualityFlag `json:"quality_flag"`
	RingNumber  *int64      `json:"ring_number,omitempty"`
}

// AttitudeReading is the durable row shape for guidance samples.
type AttitudeReading struct {
	ID                  int64       `json:"id"`
	SourceID            string      `json:"source_id"`
	Timestamp           float64     `json:"timestamp"`
	Pitch               float64     `json:"pitch"`
	Roll                float64     `json:"roll"`
	Yaw                 float64     `json:"yaw"`
	HorizontalDeviation float64     `json:"horizontal_deviation"`
	VerticalDeviation   float64     `json:"vertical_deviation"`
	AxisDeviation       float64     `json:"axis_deviation"`
	QualityFlag         QualityFlag `json:"quality_flag"`
	RingNumber          *int64      `json:"ring_number,omitempty"`
}

// MonitoringReading is the durable row shape for geotechnical samples.
type MonitoringReading struct {
	ID             int64       `json:"id"`
	SourceID       string      `json:"source_id"`
	Timestamp      float64     `json:"timestamp"`
	SensorType     string      `json:"sensor_type"`
	SensorLocation string      `json:"sensor_location"`
	Value          float64     `json:"value"`
	Unit           string      `json:"unit"`
	QualityFlag    QualityFlag `json:"quality_flag"`
	RingNumber     *int64      `json:"ring_number,omitempty"`
}
