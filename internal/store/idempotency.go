package store

import (
	"sync"

	"github.com/zoobzio/clockz"
)

// idempotencyEntry is one cached (key -> resource_id) mapping with the
// timestamp it was recorded at.
type idempotencyEntry struct {
	resourceID string
	recordedAt int64 // UnixNano, from the injected clock
}

// IdempotencyCache implements a payment-idempotency pattern,
// reused here by Fulfillment: a short in-process cache keyed by
// idempotency_key, so a retried confirmation within the window returns
// the order already created instead of creating a second one.
type IdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	window  int64 // nanoseconds
	clock   clockz.Clock
}

// NewIdempotencyCache creates a cache with the given TTL window.
func NewIdempotencyCache(clock clockz.Clock, window int64) *IdempotencyCache {
	return &IdempotencyCache{
		entries: make(map[string]idempotencyEntry),
		window:  window,
		clock:   clock,
	}
}

// Get returns the cached resource ID for key if it was recorded within
// the window, and whether it was found live.
func (c *IdempotencyCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.clock.Now().UnixNano()-entry.recordedAt > c.window {
		delete(c.entries, key)
		return "", false
	}
	return entry.resourceID, true
}

// Put records resourceID against key, starting a fresh TTL window.
func (c *IdempotencyCache) Put(key, resourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = idempotencyEntry{resourceID: resourceID, recordedAt: c.clock.Now().UnixNano()}
}
