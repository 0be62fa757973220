// Package status tracks per-rule reconciliation results for the HTTP facade.
package status

import (
	"sync"
	"time"
)

// RuleStatus is the most recent reconciliation result for one rule, keyed by
// the rule's position in the active rule list.
type RuleStatus struct {
	LastRun      *time.Time `json:"last_run"`
	LinksCreated int        `json:"links_created"`
	LinksFailed  int        `json:"links_failed"`
	LastError    string     `json:"last_error,omitempty"`
	TotalRuns    uint64     `json:"total_runs"`
}

// Tracker holds rule statuses behind a mutex. Readers get copies; the
// scheduler is the only writer.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[int]RuleStatus
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[int]RuleStatus)}
}

// Update records one completed run for the rule at index. Counters replace
// the previous run's values; TotalRuns accumulates. A non-empty errMsg
// overwrites the previous error, an empty one clears it.
func (t *Tracker) Update(index, created, failed int, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.statuses[index]
	now := time.Now()
	st.LastRun = &now
	st.LinksCreated = created
	st.LinksFailed = failed
	st.LastError = errMsg
	st.TotalRuns++
	t.statuses[index] = st
}

// Get returns the status for the rule at index.
func (t *Tracker) Get(index int) (RuleStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.statuses[index]
	return st, ok
}

// All returns a copy of every tracked status.
func (t *Tracker) All() map[int]RuleStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[int]RuleStatus, len(t.statuses))
	for k, v := range t.statuses {
		out[k] = v
	}
	return out
}

// Reset drops all statuses. Called when the rule list is replaced, since
// indexes may now refer to different rules.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses = make(map[int]RuleStatus)
}
