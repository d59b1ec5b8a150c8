// Package monitoring provides Prometheus metrics for the bridge.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Queue metrics
	TasksPosted  *prometheus.CounterVec
	TasksDropped prometheus.Counter
	QueueDepth   prometheus.Gauge

	// Execution metrics
	TasksExecuted *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec

	// Settlement metrics
	FuturesSettled *prometheus.CounterVec
	TasksOrphaned  prometheus.Counter

	// Environment metrics
	EnvsActive   prometheus.Gauge
	EnvsDisposed prometheus.Counter
}

// NewMetrics creates a metrics collector on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewNop creates a metrics collector on a throwaway registry. Used in tests
// and by hosts with metrics disabled.
func NewNop() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith creates a metrics collector on the given registry
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// Queue metrics
		TasksPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_tasks_posted_total",
				Help: "Total number of work items posted to environment queues",
			},
			[]string{"kind"},
		),
		TasksDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_tasks_dropped_total",
				Help: "Total number of work items dropped because the target was disposed",
			},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_queue_depth",
				Help: "Number of work items currently queued across all environments",
			},
		),

		// Execution metrics
		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_tasks_executed_total",
				Help: "Total number of work items executed",
			},
			[]string{"kind", "outcome"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_phase_duration_seconds",
				Help:    "Task phase duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"phase"},
		),

		// Settlement metrics
		FuturesSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_futures_settled_total",
				Help: "Total number of future settlements",
			},
			[]string{"outcome"},
		),
		TasksOrphaned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_tasks_orphaned_total",
				Help: "Total number of tasks discarded before running and settled via the orphan fallback",
			},
		),

		// Environment metrics
		EnvsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_environments_active",
				Help: "Number of live execution environments",
			},
		),
		EnvsDisposed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_environments_disposed_total",
				Help: "Total number of environments disposed",
			},
		),

	}

	return m
}

// ObservePhase records the duration of one task phase
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
