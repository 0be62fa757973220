package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTopologyMetrics() {
	r.SnapshotQueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiolinkd_snapshot_queries_total",
			Help: "Topology snapshot queries against the audio server",
		},
		[]string{"status"},
	)

	r.SnapshotQueryDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audiolinkd_snapshot_query_duration_seconds",
			Help:    "Topology snapshot query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.TopologyNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "audiolinkd_topology_nodes",
			Help: "Nodes in the last topology snapshot",
		},
	)

	r.TopologyPorts = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "audiolinkd_topology_ports",
			Help: "Ports in the last topology snapshot",
		},
	)

	r.TopologyLinks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "audiolinkd_topology_links",
			Help: "Links in the last topology snapshot",
		},
	)

	r.TopologyQueryErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "audiolinkd_topology_query_errors_total",
			Help: "Failed topology queries",
		},
	)

	r.SnapshotCacheHitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiolinkd_snapshot_cache_total",
			Help: "Snapshot cache lookups by result",
		},
		[]string{"result"},
	)
}
