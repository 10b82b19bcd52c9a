package boltcache

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcpd/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestCache(t *testing.T, clock *fakeClock) *Cache {
	t.Helper()
	cache, err := Open(Options{
		Path: filepath.Join(t.TempDir(), "results.db"),
		Now:  clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, cache.Close())
	})
	return cache
}

func sampleResult(requestID string) *domain.OperationResult {
	return &domain.OperationResult{
		RequestID:     requestID,
		Operation:     "get_task",
		Result:        map[string]any{"id": "t-1", "title": "ship it"},
		Success:       true,
		ExecutionTime: 25 * time.Millisecond,
	}
}

func TestCache_SetAndGet(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, clock)

	cache.Set("k1", sampleResult("req-1"), time.Minute)

	got, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "get_task", got.Operation)
	assert.True(t, got.Success)
	assert.Equal(t, map[string]any{"id": "t-1", "title": "ship it"}, got.Result)
}

func TestCache_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, clock)

	cache.Set("k1", sampleResult("req-1"), 10*time.Second)

	clock.Advance(10*time.Second - time.Nanosecond)
	_, ok := cache.Get("k1")
	assert.True(t, ok, "entry must live until the TTL elapses")

	clock.Advance(time.Nanosecond)
	_, ok = cache.Get("k1")
	assert.False(t, ok, "entry must be gone at exactly the TTL")
}

func TestCache_NonPositiveTTLIsNoop(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, clock)

	cache.Set("k1", sampleResult("req-1"), 0)
	cache.Set("k2", sampleResult("req-2"), -time.Second)

	assert.Equal(t, 0, cache.Len())
}

func TestCache_Delete(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, clock)

	cache.Set("k1", sampleResult("req-1"), time.Minute)
	cache.Delete("k1")

	_, ok := cache.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_SweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, clock)

	cache.Set("short", sampleResult("req-1"), 5*time.Second)
	cache.Set("long", sampleResult("req-2"), time.Hour)
	require.Equal(t, 2, cache.Len())

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, cache.Sweep())
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("long")
	assert.True(t, ok)
}

func TestCache_SurvivesReopen(t *testing.T) {
	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "results.db")

	first, err := Open(Options{Path: path, Now: clock.Now})
	require.NoError(t, err)
	first.Set("k1", sampleResult("req-1"), time.Hour)
	require.NoError(t, first.Close())

	second, err := Open(Options{Path: path, Now: clock.Now})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, second.Close())
	}()

	got, ok := second.Get("k1")
	require.True(t, ok, "entries persist across restarts")
	assert.Equal(t, "req-1", got.RequestID)
}

func TestCache_ClosedBehavesAsMiss(t *testing.T) {
	clock := newFakeClock()
	cache, err := Open(Options{
		Path: filepath.Join(t.TempDir(), "results.db"),
		Now:  clock.Now,
	})
	require.NoError(t, err)

	cache.Set("k1", sampleResult("req-1"), time.Minute)
	require.NoError(t, cache.Close())

	_, ok := cache.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Sweep())
	require.NoError(t, cache.Close(), "double close is safe")
}

func TestCache_OpenRequiresPath(t *testing.T) {
	_, err := Open(Options{})
	require.Error(t, err)
}
