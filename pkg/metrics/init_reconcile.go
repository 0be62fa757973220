package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReconcileMetrics() {
	r.RuleRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiolinkd_rule_runs_total",
			Help: "Total rule reconciliation runs",
		},
		[]string{"rule", "status"},
	)

	r.RuleRunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiolinkd_rule_run_duration_seconds",
			Help:    "Rule reconciliation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"rule"},
	)

	r.LinksCreatedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiolinkd_links_created_total",
			Help: "Links created by rule reconciliation",
		},
		[]string{"rule"},
	)

	r.LinkFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiolinkd_link_failures_total",
			Help: "Failed link operations",
		},
		[]string{"rule"},
	)

	r.ActiveRules = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "audiolinkd_active_rules",
			Help: "Number of rules currently loaded",
		},
	)
}
