// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache memoizes verification results for deterministic engines
// so a tenant that repeats an identical request within the TTL window
// skips re-translation and re-verification entirely.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// DefaultTTL matches §4.11's 1-hour cache lifetime.
const DefaultTTL = time.Hour

// DefaultMaxEntries is the LRU eviction ceiling when CACHE_MAX_ENTRIES
// is not set.
const DefaultMaxEntries = 10000

// Key identifies one cached verification outcome.
type Key struct {
	TenantID    string
	Fingerprint string
}

// Entry is a cached verification result plus the time it was stored.
type Entry struct {
	Result   schema.VerificationResult
	CachedAt time.Time
}

// CacheOption is a functional option for configuring a Cache, mirroring
// services/code_buddy/verify/cache.go's CacheOption/WithCacheTTL shape.
type CacheOption func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithMaxEntries overrides DefaultMaxEntries.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

type listEntry struct {
	key   Key
	entry Entry
}

// Cache is a tenant-and-fingerprint-keyed, TTL-expiring, LRU-evicting
// store of verification results. Only deterministic engines (math,
// logic, code, SQL, stats) populate it; the control plane decides which
// kinds are cacheable, not Cache itself, keeping this a dumb,
// engine-agnostic component per §4.11.
//
// Thread Safety: Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[Key]*list.Element // -> *listEntry
	order      *list.List            // front = most recently used
	ttl        time.Duration
	maxEntries int
}

// New builds a Cache configured by opts.
func New(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:    make(map[Key]*list.Element),
		order:      list.New(),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for key if present and not expired.
func (c *Cache) Get(key Key) (schema.VerificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return schema.VerificationResult{}, false
	}
	le := elem.Value.(*listEntry)
	if time.Since(le.entry.CachedAt) > c.ttl {
		c.removeElement(elem)
		return schema.VerificationResult{}, false
	}
	c.order.MoveToFront(elem)
	result := le.entry.Result
	result.Cached = true
	return result, true
}

// Put stores result under key, evicting the least-recently-used entry
// if the cache is at capacity.
func (c *Cache) Put(key Key, result schema.VerificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*listEntry).entry = Entry{Result: result, CachedAt: time.Now()}
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&listEntry{key: key, entry: Entry{Result: result, CachedAt: time.Now()}})
	c.entries[key] = elem

	for c.order.Len() > c.maxEntries {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
}

// Invalidate removes a single key from the cache.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// InvalidateTenant removes every cached entry for a tenant, used when a
// tenant's policy or schema changes in a way that makes prior results
// stale.
func (c *Cache) InvalidateTenant(tenantID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*listEntry).key.TenantID == tenantID {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Cleanup removes expired entries and reports how many were removed,
// mirroring cache.go's periodic Cleanup sweep.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if time.Since(elem.Value.(*listEntry).entry.CachedAt) > c.ttl {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Size returns the number of entries currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// removeElement removes elem from both the LRU list and the index map.
// Callers must hold c.mu for writing.
func (c *Cache) removeElement(elem *list.Element) {
	le := elem.Value.(*listEntry)
	delete(c.entries, le.key)
	c.order.Remove(elem)
}
