package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Reconciliation Metrics
	RuleRunsTotal     *prometheus.CounterVec
	RuleRunDuration   *prometheus.HistogramVec
	LinksCreatedTotal *prometheus.CounterVec
	LinkFailuresTotal *prometheus.CounterVec
	ActiveRules       prometheus.Gauge

	// Topology Metrics
	SnapshotQueriesTotal   *prometheus.CounterVec
	SnapshotQueryDuration  prometheus.Histogram
	TopologyNodes          prometheus.Gauge
	TopologyPorts          prometheus.Gauge
	TopologyLinks          prometheus.Gauge
	TopologyQueryErrors    prometheus.Counter
	SnapshotCacheHitsTotal *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initReconcileMetrics()
	r.initTopologyMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
