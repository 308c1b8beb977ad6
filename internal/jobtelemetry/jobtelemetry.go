// Package jobtelemetry provides Prometheus instrumentation for a job
// system: counts of created/finished jobs, steal attempts and successes,
// and gauges for queue depth and parked workers. It is optional
// instrumentation, not part of the job system's contract, so it lives
// under internal/. A System uses the Collector given with WithMetrics, or
// creates its own private one.
package jobtelemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobsystem"

// Collector holds the metrics a running System reports.
type Collector struct {
	JobsCreated   *prometheus.CounterVec
	JobsFinished  *prometheus.CounterVec
	StealAttempts prometheus.Counter
	StealSuccess  prometheus.Counter
	QueueDepth    *prometheus.GaugeVec
	ParkedWorkers prometheus.Gauge

	registry *prometheus.Registry
}

// NewCollector creates a Collector registered against its own Prometheus
// registry, grounded on the pack's internal/metrics.Collector shape
// (promauto.With(registry).New*).
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{registry: registry}

	c.JobsCreated = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total number of jobs created, by kind (root, child).",
		},
		[]string{"kind"},
	)

	c.JobsFinished = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of jobs whose unfinished count reached zero.",
		},
		[]string{"kind"},
	)

	c.StealAttempts = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steal_attempts_total",
			Help:      "Total number of steal attempts across all worker deques.",
		},
	)

	c.StealSuccess = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steal_success_total",
			Help:      "Total number of steal attempts that returned a job.",
		},
	)

	c.QueueDepth = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deque_depth",
			Help:      "Current number of outstanding jobs in a worker's deque.",
		},
		[]string{"thread_id"},
	)

	c.ParkedWorkers = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parked_workers",
			Help:      "Current number of worker goroutines parked waiting for work.",
		},
	)

	return c
}

// Registry returns the Prometheus registry metrics were registered against,
// for an HTTP handler or test assertions to read from.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
