// Package cache provides an in-process load-through cache: LRU storage in
// front of a caller-supplied loader, with singleflight so concurrent misses
// for the same key share one load.
package cache

import (
	"context"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key on cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// LoaderCache caches loader results keyed by a string form of K. A burst of
// concurrent misses for one key runs the loader once; the other callers block
// on the in-flight load and share its result. Failed loads are never stored.
type LoaderCache[K comparable, V any] struct {
	entries *lru.Cache[string, V]
	flight  singleflight.Group
	keyFn   func(K) string
}

// NewLoaderCache creates a cache holding at most maxEntries values. keyFn must
// map equal keys to equal strings; it is used for both the LRU and the
// singleflight group.
func NewLoaderCache[K comparable, V any](maxEntries int, keyFn func(K) string) (*LoaderCache[K, V], error) {
	entries, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, err
	}

	return &LoaderCache[K, V]{entries: entries, keyFn: keyFn}, nil
}

// Get returns the cached value for key, or runs load and stores the result.
// The second return reports whether the value came from the cache.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load Loader[K, V]) (V, bool, error) {
	ks := c.keyFn(key)
	if v, ok := c.entries.Get(ks); ok {
		return v, true, nil
	}

	v, err, _ := c.flight.Do(ks, func() (any, error) {
		loaded, loadErr := load(ctx, key)
		if loadErr != nil {
			var zero V
			return zero, loadErr
		}

		c.entries.Add(ks, loaded)

		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	return v.(V), false, nil
}

// Remove drops the entry for key, if present.
func (c *LoaderCache[K, V]) Remove(key K) {
	c.entries.Remove(c.keyFn(key))
}

// Purge drops every entry.
func (c *LoaderCache[K, V]) Purge() {
	c.entries.Purge()
}

// Len reports the number of cached entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.entries.Len()
}
