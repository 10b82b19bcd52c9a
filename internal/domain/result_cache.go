package domain

import (
	"sync"
	"time"
)

// ResultCache memoizes successful operation results keyed by CacheKey.
// Implementations must honor the TTL boundary exactly: an entry written
// with TTL T is retrievable at t < T after the write and absent at t >= T.
// Backend failures are soft; implementations log and behave as a miss.
type ResultCache interface {
	Get(key string) (*OperationResult, bool)
	Set(key string, value *OperationResult, ttl time.Duration)
	Delete(key string)
	Len() int
	// Sweep drops expired entries and returns how many were removed.
	Sweep() int
}

type memoryCacheEntry struct {
	value     *OperationResult
	storedAt  time.Time
	expiresAt time.Time
}

// MemoryResultCache is the in-process ResultCache. Entries carry their own
// expiry; the oldest entry is evicted when the cache exceeds its max size.
type MemoryResultCache struct {
	mu         sync.RWMutex
	entries    map[string]*memoryCacheEntry
	maxEntries int
	now        func() time.Time
}

// MemoryCacheOptions configures a MemoryResultCache. Now is overridable
// for deterministic expiry in tests and defaults to time.Now.
type MemoryCacheOptions struct {
	MaxEntries int
	Now        func() time.Time
}

// NewMemoryResultCache creates an empty in-memory result cache.
func NewMemoryResultCache(opts MemoryCacheOptions) *MemoryResultCache {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryResultCache{
		entries:    make(map[string]*memoryCacheEntry),
		maxEntries: maxEntries,
		now:        now,
	}
}

// Get returns the live entry for key, or a miss when absent or expired.
func (c *MemoryResultCache) Get(key string) (*OperationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl. A non-positive ttl is a no-op.
func (c *MemoryResultCache) Set(key string, value *OperationResult, ttl time.Duration) {
	if ttl <= 0 || value == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &memoryCacheEntry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}

	if len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

// Delete removes the entry for key if present.
func (c *MemoryResultCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the current number of entries, expired ones included.
func (c *MemoryResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries.
func (c *MemoryResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldest removes the oldest entry (must be called with lock held).
func (c *MemoryResultCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.storedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

var _ ResultCache = (*MemoryResultCache)(nil)
