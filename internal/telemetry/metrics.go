// Copyright 2025 James Ross
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by both backends and
// the worker loop, mirroring internal/obs/metrics.go's counters and
// histograms. A Metrics value is safe to share across queues: each
// collector carries a "queue" and/or "backend" label rather than one
// metric per queue.
type Metrics struct {
	JobsEnqueued   *prometheus.CounterVec
	JobsStarted    *prometheus.CounterVec
	JobsCompleted  *prometheus.CounterVec
	JobsFailed     *prometheus.CounterVec
	JobsRetried    *prometheus.CounterVec
	ProcessingTime *prometheus.HistogramVec
	WorkerActive   *prometheus.GaugeVec
	QueueDepth     *prometheus.GaugeVec
}

// NewMetrics registers a fresh metric set against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the global
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igniter_jobs_enqueued_total",
			Help: "Total number of jobs dispatched or scheduled.",
		}, []string{"queue", "job"}),
		JobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igniter_jobs_started_total",
			Help: "Total number of job attempts started.",
		}, []string{"queue", "job"}),
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igniter_jobs_completed_total",
			Help: "Total number of jobs that completed successfully.",
		}, []string{"queue", "job"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igniter_jobs_failed_total",
			Help: "Total number of job attempts that failed (retryable or final).",
		}, []string{"queue", "job", "final"}),
		JobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igniter_jobs_retried_total",
			Help: "Total number of job attempts re-queued for retry.",
		}, []string{"queue", "job"}),
		ProcessingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "igniter_job_processing_duration_seconds",
			Help:    "Handler execution duration per attempt.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue", "job"}),
		WorkerActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "igniter_worker_active",
			Help: "Number of in-flight handler executions per worker.",
		}, []string{"worker"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "igniter_queue_depth",
			Help: "Waiting job count by queue and status.",
		}, []string{"queue", "status"}),
	}
	reg.MustRegister(
		m.JobsEnqueued, m.JobsStarted, m.JobsCompleted, m.JobsFailed,
		m.JobsRetried, m.ProcessingTime, m.WorkerActive, m.QueueDepth,
	)
	return m
}

// Every method below is nil-receiver safe so a backend can call them
// unconditionally whether or not a Metrics sink was configured on the
// runtime, mirroring NoopLogger/NoopTelemetry's "always safe to call"
// contract for the logging and tracing surfaces.

// Enqueued records a job entering the waiting or delayed state.
func (m *Metrics) Enqueued(queue, job string) {
	if m == nil {
		return
	}
	m.JobsEnqueued.WithLabelValues(queue, job).Inc()
}

// Started records a worker claiming a job for execution.
func (m *Metrics) Started(queue, job string) {
	if m == nil {
		return
	}
	m.JobsStarted.WithLabelValues(queue, job).Inc()
}

// Completed records a job's handler returning without error.
func (m *Metrics) Completed(queue, job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsCompleted.WithLabelValues(queue, job).Inc()
	m.ProcessingTime.WithLabelValues(queue, job).Observe(duration.Seconds())
}

// Failed records a job's handler returning an error, either retryable
// (final=false, followed by a Retried call) or terminal (final=true).
func (m *Metrics) Failed(queue, job string, final bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsFailed.WithLabelValues(queue, job, strconv.FormatBool(final)).Inc()
	m.ProcessingTime.WithLabelValues(queue, job).Observe(duration.Seconds())
}

// Retried records a failed attempt being re-queued rather than moved
// to its terminal failed state.
func (m *Metrics) Retried(queue, job string) {
	if m == nil {
		return
	}
	m.JobsRetried.WithLabelValues(queue, job).Inc()
}

// WorkerActiveAdd adjusts the in-flight handler gauge for a worker by
// delta (+1 on claim, -1 on completion).
func (m *Metrics) WorkerActiveAdd(worker string, delta float64) {
	if m == nil {
		return
	}
	m.WorkerActive.WithLabelValues(worker).Add(delta)
}

// QueueDepthSet reports a queue's current waiting/active/etc. count
// for a given status bucket.
func (m *Metrics) QueueDepthSet(queue, status string, count float64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue, status).Set(count)
}
