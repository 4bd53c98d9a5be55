// Package cache holds the single-slot plan catalogue cache. An entry past its
// expiry is still returned, flagged stale, so callers can serve it when a
// refresh fails.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// Entry is one cached catalogue snapshot.
type Entry struct {
	Plans     []entity.Plan `json:"plans"`
	StoredAt  time.Time     `json:"stored_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Fresh reports whether the entry is still within its TTL at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// PlanCache stores the normalized plan list.
type PlanCache interface {
	// Get returns the entry, fresh or stale, or ok=false when nothing was ever stored.
	Get(ctx context.Context) (entry *Entry, ok bool, err error)
	Set(ctx context.Context, plans []entity.Plan) error
	// Now is the clock the cache stamps entries with.
	Now() time.Time
}

// MemoryPlanCache keeps the entry in process memory.
type MemoryPlanCache struct {
	mu    sync.RWMutex
	entry *Entry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryPlanCache(ttl time.Duration, now func() time.Time) *MemoryPlanCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryPlanCache{ttl: ttl, now: now}
}

func (c *MemoryPlanCache) Get(_ context.Context) (*Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return nil, false, nil
	}
	cp := *c.entry
	cp.Plans = append([]entity.Plan(nil), c.entry.Plans...)
	return &cp, true, nil
}

func (c *MemoryPlanCache) Set(_ context.Context, plans []entity.Plan) error {
	now := c.now()
	c.mu.Lock()
	c.entry = &Entry{
		Plans:     append([]entity.Plan(nil), plans...),
		StoredAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryPlanCache) Now() time.Time {
	return c.now()
}
