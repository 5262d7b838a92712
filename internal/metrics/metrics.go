// Package metrics defines the Prometheus collectors for pipeline runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "postlens"

// OutcomeOK labels a successful run; failed runs are labelled with their error kind
const OutcomeOK = "ok"

// Metrics holds the pipeline collectors
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	SharedRuns      prometheus.Counter
	CacheLookups    *prometheus.CounterVec
	FinanceDegraded *prometheus.CounterVec
}

// New creates and registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Pipeline invocations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline invocations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~2.7min
			},
			[]string{"operation"},
		),
		SharedRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "shared_runs_total",
				Help:      "Analyze calls that joined an in-flight run for the same entity",
			},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Result cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),
		FinanceDegraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "finance",
				Name:      "degraded_total",
				Help:      "Financial category lookups that fell back to empty",
			},
			[]string{"category"},
		),
	}
}

// CacheLookup records a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Degraded records a financial category fallback
func (m *Metrics) Degraded(category string) {
	m.FinanceDegraded.WithLabelValues(category).Inc()
}
