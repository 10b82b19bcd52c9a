package domain

import (
	"context"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerSnapshot is a read-only view of breaker counters. All counters
// are monotonically increasing.
type BreakerSnapshot struct {
	Name                 string       `json:"name"`
	State                BreakerState `json:"state"`
	FailureCount         int          `json:"failure_count"`
	TotalRequests        uint64       `json:"total_requests"`
	SuccessfulRequests   uint64       `json:"successful_requests"`
	FailedRequests       uint64       `json:"failed_requests"`
	CircuitOpenCount     uint64       `json:"circuit_open_count"`
	CircuitHalfOpenCount uint64       `json:"circuit_half_open_count"`
}

// BreakerOptions configures a CircuitBreaker.
type BreakerOptions struct {
	Name             string
	FailureThreshold int
	RecoveryTimeout  time.Duration
	// Now is overridable for deterministic cooldown tests.
	Now func() time.Time
	// OnStateChange fires after every transition, outside the handler call
	// but under the breaker lock; keep it fast.
	OnStateChange func(name string, from, to BreakerState)
}

// CircuitBreaker guards a failing dependency. Consecutive failures in
// CLOSED open the circuit; while OPEN every call fails fast without
// invoking the handler until the recovery timeout elapses; then exactly
// one concurrent caller is admitted as the HALF_OPEN probe. A successful
// probe closes the circuit and zeroes the failure count, a failed probe
// re-opens it and restarts the cooldown.
//
// One mutable state is shared across all concurrent callers of the same
// breaker instance; all transitions happen under the mutex.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time
	onStateChange    func(name string, from, to BreakerState)

	mu            sync.Mutex
	state         BreakerState
	failureCount  int
	openedAt      time.Time
	probeInFlight bool

	totalRequests        uint64
	successfulRequests   uint64
	failedRequests       uint64
	circuitOpenCount     uint64
	circuitHalfOpenCount uint64
}

// NewCircuitBreaker creates a breaker in the CLOSED state.
func NewCircuitBreaker(opts BreakerOptions) *CircuitBreaker {
	threshold := opts.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultBreakerFailureThreshold
	}
	recovery := opts.RecoveryTimeout
	if recovery <= 0 {
		recovery = DefaultBreakerRecoverySeconds * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		name:             opts.Name,
		failureThreshold: threshold,
		recoveryTimeout:  recovery,
		now:              now,
		onStateChange:    opts.OnStateChange,
		state:            BreakerClosed,
	}
}

// Call runs fn through the breaker. A fast-fail returns ErrCircuitOpen
// wrapped with the breaker name; the handler is not invoked. Any non-nil
// error from fn counts as a failure.
func (b *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := b.beforeCall(); err != nil {
		return nil, err
	}

	result, err := fn(ctx)
	b.afterCall(err)
	return result, err
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the breaker counters.
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerSnapshot{
		Name:                 b.name,
		State:                b.state,
		FailureCount:         b.failureCount,
		TotalRequests:        b.totalRequests,
		SuccessfulRequests:   b.successfulRequests,
		FailedRequests:       b.failedRequests,
		CircuitOpenCount:     b.circuitOpenCount,
		CircuitHalfOpenCount: b.circuitHalfOpenCount,
	}
}

// beforeCall admits or rejects the call and accounts for it. Transition
// OPEN -> HALF_OPEN happens here once the cooldown has elapsed; the
// admitted caller becomes the single probe.
func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) > b.recoveryTimeout {
			b.transition(BreakerHalfOpen)
			b.probeInFlight = true
			return nil
		}
		b.failedRequests++
		return b.openError("circuit " + b.name + " is open")
	case BreakerHalfOpen:
		if b.probeInFlight {
			b.failedRequests++
			return b.openError("circuit " + b.name + " probe in flight")
		}
		b.probeInFlight = true
		return nil
	default:
		return nil
	}
}

// afterCall applies the outcome of an admitted call.
func (b *CircuitBreaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.successfulRequests++
		if b.state == BreakerHalfOpen {
			b.probeInFlight = false
			b.transition(BreakerClosed)
		}
		// Any success in CLOSED or HALF_OPEN resets the failure counter.
		b.failureCount = 0
		return
	}

	b.failedRequests++
	switch b.state {
	case BreakerHalfOpen:
		// Failed probe: re-open immediately, failure count unchanged.
		b.probeInFlight = false
		b.openedAt = b.now()
		b.transition(BreakerOpen)
	case BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.openedAt = b.now()
			b.transition(BreakerOpen)
		}
	}
}

func (b *CircuitBreaker) openError(msg string) *Error {
	return &Error{
		Code:      CodeUnavailable,
		Op:        "breaker.Call",
		Message:   msg,
		Cause:     ErrCircuitOpen,
		Retryable: true,
	}
}

// transition must be called with the lock held.
func (b *CircuitBreaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	switch to {
	case BreakerOpen:
		b.circuitOpenCount++
	case BreakerHalfOpen:
		b.circuitHalfOpenCount++
	}
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}
