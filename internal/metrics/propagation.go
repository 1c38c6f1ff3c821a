package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PropagationMetrics tracks outcomes of the propagation engine's per-database applies.
//
// Example:
//
//	pm := NewPropagationMetrics("schema_propagation")
//	pm.OutcomesTotal.WithLabelValues("success", "ddl").Inc()
//	pm.DurationSeconds.WithLabelValues("ddl").Observe(0.042)
type PropagationMetrics struct {
	// OutcomesTotal counts terminal per-DB outcomes, labeled status (success|skipped|failed)
	// and schema_type (a caller-supplied tag describing the artifact, e.g. "ddl").
	OutcomesTotal *prometheus.CounterVec

	// DurationSeconds observes the wall-clock duration of a single apply, labeled schema_type.
	DurationSeconds *prometheus.HistogramVec

	// RatePerSecond is the current completions-per-second rate of the most recently
	// observed job, updated by the progress streamer.
	RatePerSecond prometheus.Gauge

	// BreakerTripsTotal counts how many jobs ended because the circuit breaker tripped.
	BreakerTripsTotal prometheus.Counter
}

// NewPropagationMetrics creates propagation metrics under the given namespace.
func NewPropagationMetrics(namespace string) *PropagationMetrics {
	return &PropagationMetrics{
		OutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "total",
				Help:      "Total number of terminal per-database propagation outcomes",
			},
			[]string{"status", "schema_type"},
		),

		DurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Duration of a single database apply",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"schema_type"},
		),

		RatePerSecond: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rate_per_second",
				Help:      "Current completions-per-second rate of the active propagation job",
			},
		),

		BreakerTripsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_trips_total",
				Help:      "Total number of jobs that ended because the circuit breaker tripped",
			},
		),
	}
}
