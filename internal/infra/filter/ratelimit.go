package filter

import (
	"sync"
	"time"

	"webmcpd/internal/domain"
)

// RateLimiterOptions configures a RateLimiter.
type RateLimiterOptions struct {
	// Window is the fixed counting window.
	Window time.Duration
	// MaxRequests is the per-client-type budget within one window.
	MaxRequests int
	// Now is overridable for deterministic timing in tests.
	Now func() time.Time
}

// RateLimiter counts requests per client type over fixed windows. A
// window resets lazily on the first request observed after it elapses,
// which matches timer-reset semantics without needing a goroutine.
type RateLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	now         func() time.Time
	windows     map[domain.ClientType]*requestWindow
}

type requestWindow struct {
	start time.Time
	count int
}

func NewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	window := opts.Window
	if window <= 0 {
		window = domain.DefaultRateLimitWindowSeconds * time.Second
	}
	maxRequests := opts.MaxRequests
	if maxRequests <= 0 {
		maxRequests = domain.DefaultRateLimitMaxRequests
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		window:      window,
		maxRequests: maxRequests,
		now:         now,
		windows:     make(map[domain.ClientType]*requestWindow),
	}
}

// Allow records one request for client and reports whether it fits in
// the current window.
func (r *RateLimiter) Allow(client domain.ClientType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.current(client)
	if w.count >= r.maxRequests {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many requests client has left in the current
// window without consuming one.
func (r *RateLimiter) Remaining(client domain.ClientType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.current(client)
	remaining := r.maxRequests - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *RateLimiter) current(client domain.ClientType) *requestWindow {
	now := r.now()
	w, ok := r.windows[client]
	if !ok || now.Sub(w.start) >= r.window {
		w = &requestWindow{start: now}
		r.windows[client] = w
	}
	return w
}
