package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"fmcg-dashboard/internal/metrics"
	"fmcg-dashboard/internal/source"
)

// Cache memoizes loaded datasets by source identity for the process lifetime.
// Failed loads are not cached.
type Cache struct {
	loader  *Loader
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[uint64]*Dataset
	group   singleflight.Group
}

func NewCache(loader *Loader, m *metrics.Metrics) *Cache {
	return &Cache{
		loader:  loader,
		metrics: m,
		entries: make(map[uint64]*Dataset),
	}
}

// SourceKey is the cache identity of a source URI.
func SourceKey(uri string) uint64 {
	return xxh3.HashString(source.Canonical(uri))
}

// Load returns the cached Dataset for uri, loading it on first use.
// Concurrent first loads of one source share a single read. The shared read
// is detached from ctx, so a cancelled caller stops waiting without failing
// the others.
func (c *Cache) Load(ctx context.Context, uri string) (*Dataset, error) {
	key := SourceKey(uri)
	if ds, ok := c.lookup(key); ok {
		c.metrics.CacheHit()
		return ds, nil
	}
	c.metrics.CacheMiss()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatUint(key, 16), func() (interface{}, error) {
		if ds, ok := c.lookup(key); ok {
			return ds, nil
		}
		start := time.Now()
		ds, err := c.loader.Load(loadCtx, uri)
		c.metrics.ObserveLoad(time.Since(start), ds.Len(), err)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = ds
		c.mu.Unlock()
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, loadError(uri, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

func (c *Cache) lookup(key uint64) (*Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.entries[key]
	return ds, ok
}
