// Package metrics collects per-run submission counters.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "rhadron_submit_"

// Submission holds the counters of one submit invocation.
type Submission struct {
	registry       *prometheus.Registry
	chunksBuilt    *prometheus.CounterVec
	jobsSubmitted  *prometheus.CounterVec
	jobsFailed     *prometheus.CounterVec
	eventsPlanned  *prometheus.CounterVec
	submitDuration prometheus.Histogram
	lastRun        prometheus.Gauge
}

// NewSubmission returns counters registered on a fresh registry.
func NewSubmission() *Submission {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Submission{
		registry: reg,
		chunksBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "chunks_total",
			Help: "Number of job chunks built",
		}, []string{"mass_point"}),
		jobsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "jobs_submitted_total",
			Help: "Number of jobs accepted by the scheduler",
		}, []string{"mass_point"}),
		jobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "jobs_failed_total",
			Help: "Number of jobs whose submission failed",
		}, []string{"mass_point"}),
		eventsPlanned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "events_total",
			Help: "Number of events requested across built chunks",
		}, []string{"mass_point"}),
		submitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "command_duration_seconds",
			Help:    "Time spent in one submission command",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "last_run_timestamp_seconds",
			Help: "Unix time of the last submission run",
		}),
	}
}

// RecordChunk counts a built chunk and its events.
func (m *Submission) RecordChunk(massPoint string, events int) {
	m.chunksBuilt.WithLabelValues(massPoint).Inc()
	m.eventsPlanned.WithLabelValues(massPoint).Add(float64(events))
}

// RecordSubmitted counts an accepted job.
func (m *Submission) RecordSubmitted(massPoint string, took time.Duration) {
	m.jobsSubmitted.WithLabelValues(massPoint).Inc()
	m.submitDuration.Observe(took.Seconds())
}

// RecordFailed counts a failed submission.
func (m *Submission) RecordFailed(massPoint string, took time.Duration) {
	m.jobsFailed.WithLabelValues(massPoint).Inc()
	m.submitDuration.Observe(took.Seconds())
}

// MarkRun sets the run timestamp.
func (m *Submission) MarkRun(at time.Time) {
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Submission) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
