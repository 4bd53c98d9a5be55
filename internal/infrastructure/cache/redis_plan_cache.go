package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// RedisPlanCache shares the catalogue between replicas. The Redis key lives
// for ttl+staleRetention so an expired entry is still readable for
// stale-if-error.
type RedisPlanCache struct {
	client         redis.Cmdable
	key            string
	ttl            time.Duration
	staleRetention time.Duration
	now            func() time.Time
}

func NewRedisPlanCache(client redis.Cmdable, key string, ttl, staleRetention time.Duration, now func() time.Time) *RedisPlanCache {
	if now == nil {
		now = time.Now
	}
	return &RedisPlanCache{
		client:         client,
		key:            key,
		ttl:            ttl,
		staleRetention: staleRetention,
		now:            now,
	}
}

func (c *RedisPlanCache) Get(ctx context.Context) (*Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read plan cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode plan cache: %w", err)
	}
	return &entry, true, nil
}

func (c *RedisPlanCache) Set(ctx context.Context, plans []entity.Plan) error {
	now := c.now()
	entry := Entry{Plans: plans, StoredAt: now, ExpiresAt: now.Add(c.ttl)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode plan cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl+c.staleRetention).Err(); err != nil {
		return fmt.Errorf("write plan cache: %w", err)
	}
	return nil
}

func (c *RedisPlanCache) Now() time.Time {
	return c.now()
}
