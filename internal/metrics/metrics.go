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

// Package metrics exposes the process's Prometheus registry and the
// RecordXxx helper functions every component calls into. Components
// register no Prometheus collectors of their own; all Prometheus metrics
// funnel through here
// so a single /metrics endpoint reflects the whole pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SamplesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_samples_received_total",
		Help: "Samples received by the quality pipeline, by source kind.",
	}, []string{"kind"})

	SamplesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_samples_rejected_total",
		Help: "Samples rejected by a quality pipeline stage, by stage and reason.",
	}, []string{"stage", "reason"})

	SamplesInterpolatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_samples_interpolated_total",
		Help: "Samples synthesized by the interpolator, by tag.",
	}, []string{"tag"})

	ReasonablenessFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_reasonableness_failures_total",
		Help: "Reasonableness rule failures, by rule name.",
	}, []string{"rule"})

	RecordQualityLevelTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_record_quality_level_total",
		Help: "Per-record quality level assigned by the quality metrics tracker.",
	}, []string{"level"})

	BufferReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunneledge_buffer_received_total",
		Help: "Entries submitted to the buffer writer.",
	})
	BufferWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunneledge_buffer_written_total",
		Help: "Entries successfully flushed to storage.",
	})
	BufferDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunneledge_buffer_dropped_total",
		Help: "Entries dropped by the buffer's overflow policy.",
	})
	BufferFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tunneledge_buffer_flush_duration_seconds",
		Help:    "Duration of buffer flush operations.",
		Buckets: prometheus.DefBuckets,
	})

	RingBoundaryMethodTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_ring_boundary_method_total",
		Help: "Ring boundary detections, by method used (advance_sensor|assembly_signal|time_fallback).",
	}, []string{"method"})

	RingBoundaryInvalidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunneledge_ring_boundary_invalid_total",
		Help: "Ring boundary detections that failed end>start/duration validation.",
	})

	WarningsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_warnings_emitted_total",
		Help: "Warnings emitted by the warning engine, by type and level.",
	}, []string{"type", "level"})

	WarningsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_warnings_suppressed_total",
		Help: "Warnings suppressed by hysteresis, by indicator.",
	}, []string{"indicator"})

	WarningHysteresisCleanupSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunneledge_warning_hysteresis_cleanup_skipped_total",
		Help: "Hysteresis cleanup sweeps skipped because current indicator values were not supplied.",
	})

	WarningEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tunneledge_warning_evaluation_duration_seconds",
		Help:    "Duration of a full seven-phase warning evaluation for one ring.",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_notifications_sent_total",
		Help: "Notifications dispatched, by channel and outcome.",
	}, []string{"channel", "outcome"})

	NotificationRetryExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunneledge_notification_retry_expired_total",
		Help: "Retry tasks abandoned for exceeding max age.",
	})

	WorkOrdersGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_work_orders_generated_total",
		Help: "Work orders generated, by category and priority.",
	}, []string{"category", "priority"})

	SchedulerTaskRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_scheduler_task_runs_total",
		Help: "Scheduler task dispatches, by task name.",
	}, []string{"task"})

	SchedulerTaskErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_scheduler_task_errors_total",
		Help: "Scheduler task errors, by task name.",
	}, []string{"task"})

	CollectorSamplesEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_collector_samples_emitted_total",
		Help: "Samples emitted by a collector, by collector name.",
	}, []string{"collector"})

	CollectorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_collector_errors_total",
		Help: "Non-fatal collector errors, by collector name and reason.",
	}, []string{"collector", "reason"})

	CollectorReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunneledge_collector_reconnects_total",
		Help: "Reconnect attempts by the subscription collector, by collector name.",
	}, []string{"collector"})

	CollectorConnectedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tunneledge_collector_connected",
		Help: "Whether a collector currently reports itself connected (1) or not (0).",
	}, []string{"collector"})
)

// RecordSample increments the received counter for a sample kind.
func RecordSample(kind string) { SamplesReceivedTotal.WithLabelValues(kind).Inc() }

// RecordRejection increments the rejected counter for a stage/reason pair.
func RecordRejection(stage, reason string) {
	SamplesRejectedTotal.WithLabelValues(stage, reason).Inc()
}

// RecordInterpolated increments the interpolated counter for a tag.
func RecordInterpolated(tag string) { SamplesInterpolatedTotal.WithLabelValues(tag).Inc() }

// RecordReasonablenessFailure increments the reasonableness failure counter.
func RecordReasonablenessFailure(rule string) { ReasonablenessFailuresTotal.WithLabelValues(rule).Inc() }

// RecordRecordQuality increments the quality-level counter (high|medium|low).
func RecordRecordQuality(level string) { RecordQualityLevelTotal.WithLabelValues(level).Inc() }

// RecordBufferFlush observes a flush duration.
func RecordBufferFlush(d time.Duration) { BufferFlushDuration.Observe(d.Seconds()) }

// RecordRingBoundaryMethod increments the boundary-method counter.
func RecordRingBoundaryMethod(method string) { RingBoundaryMethodTotal.WithLabelValues(method).Inc() }

// RecordWarning increments the warnings-emitted counter.
func RecordWarning(warningType, level string) {
	WarningsEmittedTotal.WithLabelValues(warningType, level).Inc()
}

// RecordSuppressed increments the hysteresis-suppressed counter.
func RecordSuppressed(indicator string) { WarningsSuppressedTotal.WithLabelValues(indicator).Inc() }

// RecordHysteresisCleanupSkipped increments the counter for a cleanup
// sweep that preserved a state key because its current value (or
// threshold config) was unavailable.
func RecordHysteresisCleanupSkipped() { WarningHysteresisCleanupSkippedTotal.Inc() }

// RecordWarningEvaluation observes a full-ring evaluation duration.
func RecordWarningEvaluation(d time.Duration) { WarningEvaluationDuration.Observe(d.Seconds()) }

// RecordNotification increments the notifications-sent counter.
func RecordNotification(channel, outcome string) {
	NotificationsSentTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordNotificationRetryExpired increments the retry-expired counter.
func RecordNotificationRetryExpired() { NotificationRetryExpiredTotal.Inc() }

// RecordWorkOrder increments the work-orders-generated counter.
func RecordWorkOrder(category, priority string) {
	WorkOrdersGeneratedTotal.WithLabelValues(category, priority).Inc()
}

// RecordSchedulerRun increments a scheduler task's run counter.
func RecordSchedulerRun(task string) { SchedulerTaskRunsTotal.WithLabelValues(task).Inc() }

// RecordSchedulerError increments a scheduler task's error counter.
func RecordSchedulerError(task string) { SchedulerTaskErrorsTotal.WithLabelValues(task).Inc() }

// RecordCollectorSample increments a collector's emitted-sample counter.
func RecordCollectorSample(collector string) {
	CollectorSamplesEmittedTotal.WithLabelValues(collector).Inc()
}

// RecordCollectorError increments a collector's error counter for reason.
func RecordCollectorError(collector, reason string) {
	CollectorErrorsTotal.WithLabelValues(collector, reason).Inc()
}

// RecordCollectorReconnect increments a collector's reconnect counter.
func RecordCollectorReconnect(collector string) {
	CollectorReconnectsTotal.WithLabelValues(collector).Inc()
}

// SetCollectorConnected sets a collector's connected gauge to 1 or 0.
func SetCollectorConnected(collector string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	CollectorConnectedGauge.WithLabelValues(collector).Set(v)
}
