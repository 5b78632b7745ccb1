// Package metrics exposes job queue counters and gauges to Prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkpipe"

// Metrics implements task.Recorder.
type Metrics struct {
	claimed   *prometheus.CounterVec
	succeeded *prometheus.CounterVec
	retried   *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	jobs      *prometheus.GaugeVec
}

var _ task.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_claimed_total",
			Help:      "Jobs leased by a runner.",
		}, []string{"type"}),
		succeeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_succeeded_total",
			Help:      "Jobs that finished successfully.",
		}, []string{"type"}),
		retried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_retried_total",
			Help:      "Failed executions rescheduled with backoff.",
		}, []string{"type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Jobs that exhausted their attempts.",
		}, []string{"type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Execution time of jobs reaching a terminal state.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"type"}),
		jobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Jobs in the queue by status, refreshed after each run.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.claimed, m.succeeded, m.retried, m.failed, m.duration, m.jobs)
	return m
}

// JobClaimed implements task.Recorder.
func (m *Metrics) JobClaimed(t task.Type) {
	m.claimed.WithLabelValues(string(t)).Inc()
}

// JobFinalized implements task.Recorder.
func (m *Metrics) JobFinalized(t task.Type, tr task.Transition) {
	label := string(t)
	switch tr.Status {
	case task.StatusSucceeded:
		m.succeeded.WithLabelValues(label).Inc()
	case task.StatusQueued:
		m.retried.WithLabelValues(label).Inc()
		return
	case task.StatusFailed:
		m.failed.WithLabelValues(label).Inc()
	}
	if tr.FinishedAt != nil {
		m.duration.WithLabelValues(label).Observe(tr.Duration.Seconds())
	}
}

// ObserveQueue refreshes the per-status gauge from the store.
func (m *Metrics) ObserveQueue(ctx context.Context, store task.Store) error {
	counts, err := store.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to observe queue: %w", err)
	}
	for _, status := range task.Statuses {
		m.jobs.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
