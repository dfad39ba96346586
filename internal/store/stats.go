package store

import (
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// StatsCache holds the last computed StoreStats until its expiry. Writes to
// the store call Invalidate so the next read recomputes.
type StatsCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	value  model.StoreStats
	expiry time.Time
	now    func() time.Time
}

// NewStatsCache returns a cache whose entries live for ttl. A non-positive
// ttl disables caching.
func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{ttl: ttl, now: time.Now}
}

// Get returns the cached stats if they have not expired.
func (c *StatsCache) Get() (model.StoreStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiry.IsZero() || !c.now().Before(c.expiry) {
		return model.StoreStats{}, false
	}
	return c.value, true
}

// Set stores stats and restarts the expiry clock.
func (c *StatsCache) Set(stats model.StoreStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 {
		return
	}
	c.value = stats
	c.expiry = c.now().Add(c.ttl)
}

// Invalidate drops the cached value.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiry = time.Time{}
}
