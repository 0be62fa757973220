// Package health exposes the daemon's health, readiness and liveness probes.
// Readiness gates traffic on the audio server being reachable, liveness
// watches the reconciliation loop, and the full health report aggregates
// every registered probe.
package health

import (
	"sync"
	"time"
)

// Status is the reported condition of a probe or of the daemon as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports the more severe of two statuses.
func worse(a, b Status) Status {
	if a == StatusUnhealthy || b == StatusUnhealthy {
		return StatusUnhealthy
	}
	if a == StatusDegraded || b == StatusDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// Check is the result of a single probe.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc produces a Check when probed.
type CheckFunc func() Check

// Response aggregates the probes of one endpoint. Its status is the worst
// status among the individual checks.
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
}

type probeSet map[string]CheckFunc

// HealthChecker holds the registered probes, grouped by endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	health probeSet
	ready  probeSet
	live   probeSet
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		health: make(probeSet),
		ready:  make(probeSet),
		live:   make(probeSet),
	}
}

// RegisterCheck adds a probe to the full health report.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	hc.health[name] = check
	hc.mu.Unlock()
}

// RegisterReadinessCheck adds a probe that gates readiness.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	hc.ready[name] = check
	hc.mu.Unlock()
}

// RegisterLivenessCheck adds a probe that gates liveness.
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	hc.live[name] = check
	hc.mu.Unlock()
}

// Check runs the full health report.
func (hc *HealthChecker) Check() Response { return hc.run(&hc.health) }

// CheckReadiness runs the readiness probes.
func (hc *HealthChecker) CheckReadiness() Response { return hc.run(&hc.ready) }

// CheckLiveness runs the liveness probes.
func (hc *HealthChecker) CheckLiveness() Response { return hc.run(&hc.live) }

func (hc *HealthChecker) run(set *probeSet) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	resp := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(*set)),
	}
	for name, probe := range *set {
		started := time.Now()
		check := probe()
		check.LastChecked = started
		check.Duration = time.Since(started)
		resp.Checks[name] = check
		resp.Status = worse(resp.Status, check.Status)
	}
	return resp
}
