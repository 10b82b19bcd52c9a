package domain

import "time"

// DispatchStatus labels the outcome of a dispatched operation.
type DispatchStatus string

const (
	// DispatchStatusSuccess indicates the handler completed.
	DispatchStatusSuccess DispatchStatus = "success"
	// DispatchStatusError indicates the handler or breaker failed.
	DispatchStatusError DispatchStatus = "error"
)

// Metrics observes dispatch, cache, breaker, transport, and collaborator
// activity. Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveDispatch(tool, operation string, kind OperationKind, duration time.Duration, err error)
	ObserveCache(tool string, hit bool)
	ObserveBreakerTransition(tool string, from, to BreakerState)
	SetBreakerState(tool string, state BreakerState)
	ObserveHTTPRequest(route, method string, status int, duration time.Duration)
	ObserveVectorStoreCall(operation string, duration time.Duration, err error)
	SetRegisteredTools(count int)
	SetCacheEntries(backend string, count int)
}
