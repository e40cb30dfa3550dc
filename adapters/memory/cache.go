// Package memory provides in-memory adapter implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fazaimron27/tooldock/ports"
)

// Cache is an in-memory ports.Cache with TTL expiry and tag-based
// invalidation. Suitable for single-process deployments; swap the port
// implementation for an external store in multi-node setups.
type Cache struct {
	mu      sync.RWMutex
	clock   ports.Clock
	entries map[string]cacheEntry
	tags    map[string]map[string]bool // tag -> set of keys
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// NewCache creates an empty cache using the given clock.
func NewCache(clock ports.Clock) *Cache {
	return &Cache{
		clock:   clock,
		entries: make(map[string]cacheEntry),
		tags:    make(map[string]map[string]bool),
	}
}

// Get retrieves a cached value; ok is false on miss or expiry.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.clock.Now().After(entry.expiresAt) {
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores a value with a TTL and optional invalidation tags.
// A zero TTL means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	c.entries[key] = cacheEntry{value: value, expiresAt: expiresAt, tags: tags}
	for _, tag := range tags {
		if c.tags[tag] == nil {
			c.tags[tag] = make(map[string]bool)
		}
		c.tags[tag][key] = true
	}
	return nil
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	return nil
}

// InvalidateTag removes every key stored under the given tag.
func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.tags[tag] {
		c.removeLocked(key)
	}
	delete(c.tags, tag)
	return nil
}

// removeLocked removes a key and its tag memberships. Caller holds mu.
func (c *Cache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	for _, tag := range entry.tags {
		if keys := c.tags[tag]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
	delete(c.entries, key)
}

// Len returns the number of live entries (for tests).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure interface compliance.
var _ ports.Cache = (*Cache)(nil)
