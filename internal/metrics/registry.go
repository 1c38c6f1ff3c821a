// Package metrics provides centralized Prometheus metrics for the propagation service.
//
// Metrics are organized by category:
//   - Propagation metrics: per-DB outcomes, apply duration, current rate.
//   - Database metrics: connection pool health, query latency, errors.
//
// All metrics follow the naming convention schema_propagation_<subsystem>_<name>_<unit>.
package metrics

import "sync"

// Registry is the central registry for all Prometheus metrics exposed by this service.
//
// Usage:
//
//	reg := metrics.DefaultRegistry()
//	reg.Propagation().OutcomesTotal.WithLabelValues("success", "ddl").Inc()
//	reg.Database().ConnectionsActive.Set(12)
type Registry struct {
	namespace string

	propagation     *PropagationMetrics
	database        *DatabaseMetrics
	propagationOnce sync.Once
	databaseOnce    sync.Once
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide metrics registry, namespaced "schema_propagation".
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry("schema_propagation")
	})
	return defaultRegistry
}

// NewRegistry creates a registry under the given namespace. Prefer DefaultRegistry
// in production; construct directly only in tests that need an isolated namespace.
func NewRegistry(namespace string) *Registry {
	return &Registry{namespace: namespace}
}

// Propagation returns the propagation engine's business metrics, lazily initialized.
func (r *Registry) Propagation() *PropagationMetrics {
	r.propagationOnce.Do(func() {
		r.propagation = NewPropagationMetrics(r.namespace)
	})
	return r.propagation
}

// Database returns the connection pool's infrastructure metrics, lazily initialized.
func (r *Registry) Database() *DatabaseMetrics {
	r.databaseOnce.Do(func() {
		r.database = NewDatabaseMetrics(r.namespace)
	})
	return r.database
}
