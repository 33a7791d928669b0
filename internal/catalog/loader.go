// Package catalog loads and caches the reference data a terminal prices against.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/tenant"
)

// Source is the subset of the back-office client the loader needs.
type Source interface {
	Products(ctx context.Context, cred backoffice.Credentials) ([]backoffice.Product, error)
	Categories(ctx context.Context, cred backoffice.Credentials) ([]backoffice.Category, error)
	Customers(ctx context.Context, cred backoffice.Credentials) ([]backoffice.Customer, error)
	Discounts(ctx context.Context, cred backoffice.Credentials) ([]backoffice.Discount, error)
	MyTenant(ctx context.Context, cred backoffice.Credentials) (backoffice.Tenant, error)
}

// PartialLoadError reports the slices that failed to load. The snapshot
// returned alongside it keeps the previous data for those slices.
type PartialLoadError struct {
	Failed map[Slice]error
}

func (e *PartialLoadError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, s := range e.Slices() {
		parts = append(parts, fmt.Sprintf("%s: %v", s, e.Failed[s]))
	}
	return "catalog: partial load: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual fetch errors.
func (e *PartialLoadError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, s := range e.Slices() {
		out = append(out, e.Failed[s])
	}
	return out
}

// Slices returns the failed slice names in a stable order.
func (e *PartialLoadError) Slices() []Slice {
	out := make([]Slice, 0, len(e.Failed))
	for s := range e.Failed {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Loader fetches snapshots from the back-office.
type Loader struct {
	Source  Source
	Cache   *Cache
	Locker  *lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger

	now func() time.Time
}

// NewLoader constructs a loader. cache and locker may be nil.
func NewLoader(src Source, cache *Cache, locker *lock.Locker, logger zerolog.Logger) *Loader {
	return &Loader{Source: src, Cache: cache, Locker: locker, LockTTL: 15 * time.Second, Logger: logger, now: time.Now}
}

// Load returns a snapshot, serving slices from the cache when present.
func (l *Loader) Load(ctx context.Context, cred backoffice.Credentials, prev Snapshot) (Snapshot, error) {
	return l.load(ctx, cred, prev, true)
}

// Refresh fetches every slice from the back-office and updates the cache.
func (l *Loader) Refresh(ctx context.Context, cred backoffice.Credentials, prev Snapshot) (Snapshot, error) {
	return l.load(ctx, cred, prev, false)
}

func (l *Loader) load(ctx context.Context, cred backoffice.Credentials, prev Snapshot, useCache bool) (Snapshot, error) {
	snap := prev
	missing := AllSlices
	if useCache {
		missing = l.fromCache(ctx, cred.TenantID, &snap, AllSlices)
		if len(missing) == 0 {
			snap.LoadedAt = l.clock()
			return snap, nil
		}
	}

	var failed map[Slice]error
	fetch := func(ctx context.Context) error {
		if useCache {
			// another terminal may have filled the cache while we waited
			missing = l.fromCache(ctx, cred.TenantID, &snap, missing)
		}
		failed = l.fetch(ctx, cred, &snap, missing)
		return nil
	}

	if l.Locker != nil && l.Cache.enabled() {
		key := tenant.PrefixKey(cred.TenantID, "catalog:lock")
		if err := l.Locker.WithLock(ctx, key, l.LockTTL, fetch); err != nil {
			if ctx.Err() != nil {
				return prev, ctx.Err()
			}
			l.Logger.Warn().Err(err).Str("tenant_id", cred.TenantID).Msg("catalog lock unavailable, fetching without it")
			_ = fetch(ctx)
		}
	} else {
		_ = fetch(ctx)
	}

	snap.LoadedAt = l.clock()
	if len(failed) > 0 {
		return snap, &PartialLoadError{Failed: failed}
	}
	return snap, nil
}

func (l *Loader) fromCache(ctx context.Context, tenantID string, snap *Snapshot, slices []Slice) []Slice {
	if !l.Cache.enabled() {
		return slices
	}
	var missing []Slice
	for _, s := range slices {
		hit, err := l.Cache.get(ctx, tenantID, s, snap)
		if err != nil {
			l.Logger.Warn().Err(err).Str("slice", string(s)).Msg("catalog cache read failed")
		}
		recordCache(s, hit)
		if !hit {
			missing = append(missing, s)
		}
	}
	return missing
}

// fetch runs the slice fetches concurrently. A failed slice leaves the
// snapshot's previous value in place.
func (l *Loader) fetch(ctx context.Context, cred backoffice.Credentials, snap *Snapshot, slices []Slice) map[Slice]error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed = map[Slice]error{}
	)
	fail := func(s Slice, err error) {
		mu.Lock()
		failed[s] = err
		mu.Unlock()
	}

	for _, s := range slices {
		g.Go(func() error {
			var err error
			switch s {
			case SliceProducts:
				var v []backoffice.Product
				if v, err = l.Source.Products(ctx, cred); err == nil {
					snap.Products = v
				}
			case SliceCategories:
				var v []backoffice.Category
				if v, err = l.Source.Categories(ctx, cred); err == nil {
					snap.Categories = v
				}
			case SliceCustomers:
				var v []backoffice.Customer
				if v, err = l.Source.Customers(ctx, cred); err == nil {
					snap.Customers = v
				}
			case SliceDiscounts:
				var v []backoffice.Discount
				if v, err = l.Source.Discounts(ctx, cred); err == nil {
					snap.Discounts = v
				}
			case SliceTenant:
				var v backoffice.Tenant
				if v, err = l.Source.MyTenant(ctx, cred); err == nil {
					snap.Tenant = v
				}
			}
			recordFetch(s, err)
			if err != nil {
				l.Logger.Warn().Err(err).Str("slice", string(s)).Str("tenant_id", cred.TenantID).Msg("catalog fetch failed")
				fail(s, err)
				return nil
			}
			if !l.Cache.enabled() {
				return nil
			}
			if cacheErr := l.Cache.put(ctx, cred.TenantID, s, snap); cacheErr != nil {
				l.Logger.Warn().Err(cacheErr).Str("slice", string(s)).Msg("catalog cache write failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(failed) == 0 {
		return nil
	}
	return failed
}

func (l *Loader) clock() time.Time {
	if l.now == nil {
		return time.Now().UTC()
	}
	return l.now().UTC()
}

func recordFetch(s Slice, err error) {
	if obs.CatalogFetchTotal == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	obs.CatalogFetchTotal.WithLabelValues(string(s), result).Inc()
}

func recordCache(s Slice, hit bool) {
	if obs.CatalogCacheTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	obs.CatalogCacheTotal.WithLabelValues(string(s), result).Inc()
}
