package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
)

// KPICache stores computed KPI blocks keyed per tenant and reporting period.
// A miss returns (nil, nil) so callers recompute without branching on error
// types.
type KPICache struct {
	cache Cache
	ttl   time.Duration
}

// NewKPICache creates a KPI cache with the given TTL.
func NewKPICache(cache Cache, ttl time.Duration) *KPICache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &KPICache{cache: cache, ttl: ttl}
}

// Get returns the cached KPI block, or nil on miss.
func (c *KPICache) Get(ctx context.Context, key string) (*collection.KPIs, error) {
	var k collection.KPIs
	if err := c.cache.GetJSON(ctx, key, &k); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
}

// Set stores the KPI block under the key.
func (c *KPICache) Set(ctx context.Context, key string, k *collection.KPIs) error {
	return c.cache.SetJSON(ctx, key, k, c.ttl)
}

// Invalidate drops every cached KPI block for the tenant. Keys are prefixed
// with the tenant id, so one pattern delete covers all reporting periods.
func (c *KPICache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.cache.DeleteByPattern(ctx, "kpi:"+tenantID.String()+":*")
}
