package topology

import (
	"sync"
	"time"
)

// SnapshotCache caches the most recent snapshot for read-mostly consumers such
// as the HTTP listing endpoints. The reconciliation engine always bypasses it
// and queries the provider directly; link decisions never act on stale data.
//
// Invalidation is explicit: a snapshot older than the TTL is refreshed on the
// next read, and Invalidate drops it immediately.
type SnapshotCache struct {
	provider Provider
	ttl      time.Duration

	// Observer, when set before first use, sees every lookup: whether the
	// cached snapshot was served and, on a refresh, the provider query
	// latency and result.
	Observer func(hit bool, queryTime time.Duration, err error)

	mu      sync.Mutex
	cached  *Snapshot
	fetched time.Time
}

// NewSnapshotCache creates a cache over the given provider. A zero ttl
// disables caching entirely and every read hits the provider.
func NewSnapshotCache(provider Provider, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{provider: provider, ttl: ttl}
}

// Get returns a cached snapshot, refreshing it when missing or stale.
func (c *SnapshotCache) Get() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.ttl > 0 && time.Since(c.fetched) < c.ttl {
		if c.Observer != nil {
			c.Observer(true, 0, nil)
		}
		return c.cached, nil
	}

	start := time.Now()
	snap, err := c.provider.Snapshot()
	if c.Observer != nil {
		c.Observer(false, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	c.cached = snap
	c.fetched = time.Now()
	return snap, nil
}

// Invalidate drops the cached snapshot so the next Get refreshes.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
