package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-pos/internal/tenant"
)

// cacheVersion is bumped when a cached slice's JSON shape changes.
const cacheVersion = "v1"

// Cache shares fetched catalog slices between terminals of one tenant.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache returns a cache with the given TTL. A nil client disables it.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func sliceKey(tenantID string, s Slice) string {
	return tenant.PrefixKey(tenantID, "catalog:"+cacheVersion+":"+string(s))
}

// slot returns a pointer to the snapshot field holding s.
func (snap *Snapshot) slot(s Slice) any {
	switch s {
	case SliceProducts:
		return &snap.Products
	case SliceCategories:
		return &snap.Categories
	case SliceCustomers:
		return &snap.Customers
	case SliceDiscounts:
		return &snap.Discounts
	case SliceTenant:
		return &snap.Tenant
	}
	return nil
}

// get decodes the cached slice into snap. It reports whether the key existed.
func (c *Cache) get(ctx context.Context, tenantID string, s Slice, snap *Snapshot) (bool, error) {
	dst := snap.slot(s)
	if dst == nil {
		return false, fmt.Errorf("catalog: unknown slice %q", s)
	}
	data, err := c.client.Get(ctx, sliceKey(tenantID, s)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("catalog: decode cached %s: %w", s, err)
	}
	return true, nil
}

// put stores the snapshot's copy of s.
func (c *Cache) put(ctx context.Context, tenantID string, s Slice, snap *Snapshot) error {
	data, err := json.Marshal(snap.slot(s))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sliceKey(tenantID, s), data, c.ttl).Err()
}

// Invalidate drops every cached slice of the tenant.
func (c *Cache) Invalidate(ctx context.Context, tenantID string) error {
	if !c.enabled() {
		return nil
	}
	keys := make([]string, 0, len(AllSlices))
	for _, s := range AllSlices {
		keys = append(keys, sliceKey(tenantID, s))
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}
