package registry

import (
	"context"
	"sync"

	"webmcpd/internal/domain"
)

type inflightCall struct {
	done   chan struct{}
	result *domain.OperationResult
}

// inflightGroup coalesces concurrent executions of the same cache key.
// The first caller becomes the leader and runs fn; arrivals while the
// leader is in flight wait and share its result. Only cacheable
// operations go through the group, so sharing is safe.
type inflightGroup struct {
	mu    sync.Mutex
	calls map[string]*inflightCall
}

func newInflightGroup() *inflightGroup {
	return &inflightGroup{calls: make(map[string]*inflightCall)}
}

// do runs fn under key, or waits for the in-flight leader. followed is
// true when this caller shared another call's result. A follower whose
// ctx expires first gets ctx.Err instead of a result.
func (g *inflightGroup) do(ctx context.Context, key string, fn func() *domain.OperationResult) (result *domain.OperationResult, followed bool, err error) {
	g.mu.Lock()
	if call, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-call.done:
			return call.result, true, nil
		case <-ctx.Done():
			return nil, true, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	g.calls[key] = call
	g.mu.Unlock()

	call.result = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(call.done)

	return call.result, false, nil
}
