// Package imagecache serves image requests cache-first from a bounded
// partition.
//
// Entries are admitted only when the declared content length is absent or at
// most MaxEntryBytes. The partition never holds more than MaxEntries entries;
// when an insertion pushes it past the limit the oldest-inserted entry is
// evicted (FIFO, not LRU). Cached images are served without any freshness
// check until evicted.
package imagecache

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/lumapos/edge/internal/cache"
)

const (
	// MaxEntryBytes is the per-item admission ceiling (500 KiB).
	MaxEntryBytes = 500 * 1024
	// MaxEntries is the partition cardinality ceiling.
	MaxEntries = 50
)

// Fetch performs a network fetch for a request.
type Fetch func(*http.Request) (*http.Response, error)

// Cache is a bounded, cache-first image fetcher over one partition.
type Cache struct {
	partition string
	store     cache.Store
	fetch     Fetch
}

// New creates an image cache over the named partition.
func New(partition string, store cache.Store, fetch Fetch) (*Cache, error) {
	if partition == "" {
		return nil, fmt.Errorf("partition name is required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetch func is required")
	}
	return &Cache{partition: partition, store: store, fetch: fetch}, nil
}

// FetchImage returns the cached response for the request identity when
// present, otherwise fetches from the network and caches the result subject
// to the admission and cardinality limits. A partition failure degrades to
// network-only behavior.
func (c *Cache) FetchImage(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("image cache is not configured")
	}

	key := cache.Identity(req)
	entry, ok, err := c.store.Match(ctx, c.partition, key)
	if err == nil && ok {
		return entry.Response(), nil
	}
	if err != nil {
		log.Printf("image cache match failed, falling through to network: %v", err)
	}

	resp, err := c.fetch(req)
	if err != nil {
		return nil, err
	}

	if tooLarge(resp) {
		return resp, nil
	}

	entry, resp, err = cache.Clone(resp)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, c.partition, key, entry); err != nil {
		log.Printf("image cache put failed: %v", err)
		return resp, nil
	}
	if err := c.evictOldest(ctx); err != nil {
		log.Printf("image cache eviction failed: %v", err)
	}

	return resp, nil
}

// tooLarge reports whether the declared content length exceeds the admission
// ceiling. An absent or malformed declaration admits the response.
func tooLarge(resp *http.Response) bool {
	declared := resp.Header.Get("Content-Length")
	if declared == "" {
		return false
	}
	length, err := strconv.ParseInt(declared, 10, 64)
	if err != nil {
		return false
	}
	return length > MaxEntryBytes
}

// evictOldest drops the oldest-inserted entry while the partition exceeds
// MaxEntries. Eviction runs after insertion, so cardinality may transiently
// reach MaxEntries+1 but never persists above MaxEntries.
func (c *Cache) evictOldest(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, c.partition)
	if err != nil {
		return err
	}
	for len(keys) > MaxEntries {
		if err := c.store.Delete(ctx, c.partition, keys[0]); err != nil {
			return err
		}
		keys = keys[1:]
	}
	return nil
}
