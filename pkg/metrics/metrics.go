package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordRuleRun records one completed rule reconciliation
func (r *Registry) RecordRuleRun(rule, status string, duration time.Duration, created, failed int) {
	r.RuleRunsTotal.WithLabelValues(rule, status).Inc()
	r.RuleRunDuration.WithLabelValues(rule).Observe(duration.Seconds())
	r.LinksCreatedTotal.WithLabelValues(rule).Add(float64(created))
	r.LinkFailuresTotal.WithLabelValues(rule).Add(float64(failed))
}

// RecordSnapshotQuery records a topology query against the audio server
func (r *Registry) RecordSnapshotQuery(status string, duration time.Duration) {
	r.SnapshotQueriesTotal.WithLabelValues(status).Inc()
	r.SnapshotQueryDuration.Observe(duration.Seconds())
	if status != "success" {
		r.TopologyQueryErrors.Inc()
	}
}

// UpdateTopology updates the topology size gauges from the latest snapshot
func (r *Registry) UpdateTopology(nodes, ports, links int) {
	r.TopologyNodes.Set(float64(nodes))
	r.TopologyPorts.Set(float64(ports))
	r.TopologyLinks.Set(float64(links))
}

// RecordCacheLookup records a snapshot cache hit or miss
func (r *Registry) RecordCacheLookup(hit bool) {
	if hit {
		r.SnapshotCacheHitsTotal.WithLabelValues("hit").Inc()
	} else {
		r.SnapshotCacheHitsTotal.WithLabelValues("miss").Inc()
	}
}

// UpdateSystemMetrics refreshes uptime and runtime gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
