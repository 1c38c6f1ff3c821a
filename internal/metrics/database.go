package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DatabaseMetrics contains metrics for the control-database connection pool.
//
// Populated periodically by postgres.PrometheusExporter from the pool's
// internal atomic PoolMetrics snapshot.
type DatabaseMetrics struct {
	ConnectionsActive prometheus.Gauge // Number of active control-database connections
	ConnectionsIdle   prometheus.Gauge // Number of idle connections in pool

	ConnectionWaitDurationSeconds prometheus.Histogram     // Time spent waiting for a connection
	QueryDurationSeconds          *prometheus.HistogramVec // Duration of queries against the control database

	QueriesTotal *prometheus.CounterVec // Total number of queries executed, labeled operation/status

	ErrorsTotal *prometheus.CounterVec // Total number of pool errors, labeled kind (connection|query|timeout)
}

// NewDatabaseMetrics creates connection pool metrics under the given namespace.
func NewDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_active",
			Help:      "Number of active connections to the control database",
		}),

		ConnectionsIdle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_idle",
			Help:      "Number of idle connections in the control database pool",
		}),

		ConnectionWaitDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connection_wait_duration_seconds",
			Help:      "Time spent waiting to acquire a control-database connection",
			Buckets:   prometheus.DefBuckets,
		}),

		QueryDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Duration of control-database queries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "queries_total",
				Help:      "Total number of control-database queries executed",
			},
			[]string{"operation", "status"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "Total number of control-database pool errors",
			},
			[]string{"kind"},
		),
	}
}
