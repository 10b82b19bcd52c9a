package boltcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/telemetry"
)

var resultsBucket = []byte("results")

// storedEntry is the on-disk form of one cache entry. Expiry is an
// absolute timestamp so the TTL survives a restart.
type storedEntry struct {
	Value     *domain.OperationResult `json:"value"`
	StoredAt  time.Time               `json:"stored_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// Options configures a Cache.
type Options struct {
	Path   string
	Logger *zap.Logger
	// Now is overridable for deterministic expiry in tests.
	Now func() time.Time
}

// Cache is the bbolt-backed ResultCache. Cached results survive process
// restarts; expiry is enforced on read and reclaimed by Sweep. I/O
// failures after open are soft: logged and treated as a miss, since a
// cache that can fail a request is worse than no cache.
type Cache struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
	closed bool
}

var _ domain.ResultCache = (*Cache)(nil)

// Open opens or creates the cache database at opts.Path.
func Open(opts Options) (*Cache, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure results bucket: %w", err)
	}
	return &Cache{
		db:     db,
		path:   path,
		logger: logger.Named("boltcache"),
		now:    now,
	}, nil
}

// Close releases the database. Further calls behave as misses.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// Get returns the live entry for key, or a miss when absent, expired,
// or unreadable.
func (c *Cache) Get(key string) (*domain.OperationResult, bool) {
	var raw []byte
	err := c.view(func(tx *bolt.Tx) error {
		value := tx.Bucket(resultsBucket).Get([]byte(key))
		if value != nil {
			raw = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("cache read failed", zap.String(telemetry.FieldCacheKey, key), zap.Error(err))
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var entry storedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String(telemetry.FieldCacheKey, key), zap.Error(err))
		c.Delete(key)
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key for ttl. A non-positive ttl is a no-op.
func (c *Cache) Set(key string, value *domain.OperationResult, ttl time.Duration) {
	if ttl <= 0 || value == nil {
		return
	}

	now := c.now()
	raw, err := json.Marshal(storedEntry{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		c.logger.Warn("cache entry not serializable", zap.String(telemetry.FieldCacheKey, key), zap.Error(err))
		return
	}

	if err := c.update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(key), raw)
	}); err != nil {
		c.logger.Warn("cache write failed", zap.String(telemetry.FieldCacheKey, key), zap.Error(err))
	}
}

// Delete removes the entry for key if present.
func (c *Cache) Delete(key string) {
	if err := c.update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Delete([]byte(key))
	}); err != nil {
		c.logger.Warn("cache delete failed", zap.String(telemetry.FieldCacheKey, key), zap.Error(err))
	}
}

// Len returns the stored entry count, expired ones included.
func (c *Cache) Len() int {
	count := 0
	if err := c.view(func(tx *bolt.Tx) error {
		count = tx.Bucket(resultsBucket).Stats().KeyN
		return nil
	}); err != nil {
		c.logger.Warn("cache stat failed", zap.Error(err))
		return 0
	}
	return count
}

// Sweep removes expired and unreadable entries.
func (c *Cache) Sweep() int {
	now := c.now()
	removed := 0
	if err := c.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(resultsBucket)
		var stale [][]byte
		if err := bucket.ForEach(func(key, value []byte) error {
			var entry storedEntry
			if err := json.Unmarshal(value, &entry); err != nil || !now.Before(entry.ExpiresAt) {
				stale = append(stale, append([]byte(nil), key...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, key := range stale {
			if err := bucket.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	}); err != nil {
		c.logger.Warn("cache sweep failed", zap.Error(err))
		return 0
	}
	return removed
}

func (c *Cache) view(fn func(*bolt.Tx) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClosed
	}
	return c.db.View(fn)
}

func (c *Cache) update(fn func(*bolt.Tx) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClosed
	}
	return c.db.Update(fn)
}

var errClosed = fmt.Errorf("cache is closed")
