package filter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

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

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(RateLimiterOptions{
		Window:      time.Minute,
		MaxRequests: 3,
		Now:         clock.Now,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(domain.ClientIDE), "request %d should pass", i+1)
	}
	assert.False(t, limiter.Allow(domain.ClientIDE))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(RateLimiterOptions{
		Window:      time.Minute,
		MaxRequests: 1,
		Now:         clock.Now,
	})

	assert.True(t, limiter.Allow(domain.ClientCLI))
	assert.False(t, limiter.Allow(domain.ClientCLI))

	clock.Advance(time.Minute - time.Nanosecond)
	assert.False(t, limiter.Allow(domain.ClientCLI), "window has not elapsed yet")

	clock.Advance(time.Nanosecond)
	assert.True(t, limiter.Allow(domain.ClientCLI), "a fresh window opens at the boundary")
}

func TestRateLimiter_ClientTypesCountIndependently(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(RateLimiterOptions{
		Window:      time.Minute,
		MaxRequests: 1,
		Now:         clock.Now,
	})

	assert.True(t, limiter.Allow(domain.ClientIDE))
	assert.False(t, limiter.Allow(domain.ClientIDE))
	assert.True(t, limiter.Allow(domain.ClientWeb))
}

func TestRateLimiter_Remaining(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(RateLimiterOptions{
		Window:      time.Minute,
		MaxRequests: 5,
		Now:         clock.Now,
	})

	assert.Equal(t, 5, limiter.Remaining(domain.ClientIDE))
	limiter.Allow(domain.ClientIDE)
	assert.Equal(t, 4, limiter.Remaining(domain.ClientIDE))

	for i := 0; i < 10; i++ {
		limiter.Allow(domain.ClientIDE)
	}
	assert.Equal(t, 0, limiter.Remaining(domain.ClientIDE))
}

func TestRateLimiter_DefaultsApply(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterOptions{})
	assert.Equal(t, domain.DefaultRateLimitMaxRequests, limiter.Remaining(domain.ClientIDE))
}
