// Package regioncache holds discovered bucket regions for the lifetime of a
// process.
package regioncache

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultSize is the number of buckets remembered when no size is configured
const DefaultSize = 32

// Cache maps bucket names to regions. It is bounded and evicts the least
// recently used bucket; entries never expire by time.
//
// A single mutex guards the whole cache and is held only for one lookup or
// insert, so callers must never hold it across a network round trip.
type Cache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, string]
}

// New creates a cache holding at most size buckets
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("regioncache: size must be positive, got %d", size)
	}
	lru, err := simplelru.NewLRU[string, string](size, nil)
	if err != nil {
		return nil, fmt.Errorf("regioncache: %w", err)
	}
	return &Cache{lru: lru}, nil
}

// Get returns the cached region for bucket and marks it recently used
func (c *Cache) Get(bucket string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(bucket)
}

// Add stores region for bucket. The last writer wins.
func (c *Cache) Add(bucket, region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(bucket, region)
}

// Len returns the number of cached buckets
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
