// Package catalog fronts the read-only service/combo catalog with an
// in-process expiring LRU. Only hits are cached; unknown ids always go to
// the source so newly published entries resolve immediately.
package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tintd/salon-dispatch/internal/model"
)

// Source resolves catalog keys, e.g. repository.CatalogRepo.
type Source interface {
	Lookup(ctx context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error)
}

// Cached is a Source with a TTL bound cache in front of it.
type Cached struct {
	src   Source
	cache *expirable.LRU[model.CatalogKey, model.CatalogEntry]
}

// NewCached wraps src. size <= 0 disables caching.
func NewCached(src Source, size int, ttl time.Duration) *Cached {
	c := &Cached{src: src}
	if size > 0 {
		c.cache = expirable.NewLRU[model.CatalogKey, model.CatalogEntry](size, nil, ttl)
	}
	return c
}

// Lookup serves keys from cache and fetches the rest in one call.
func (c *Cached) Lookup(ctx context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error) {
	if c.cache == nil {
		return c.src.Lookup(ctx, keys)
	}
	out := make(map[model.CatalogKey]model.CatalogEntry, len(keys))
	var miss []model.CatalogKey
	for _, k := range keys {
		if e, ok := c.cache.Get(k); ok {
			out[k] = e
			continue
		}
		miss = append(miss, k)
	}
	if len(miss) == 0 {
		return out, nil
	}
	fetched, err := c.src.Lookup(ctx, miss)
	if err != nil {
		return nil, err
	}
	for k, e := range fetched {
		c.cache.Add(k, e)
		out[k] = e
	}
	return out, nil
}
