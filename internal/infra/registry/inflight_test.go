package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcpd/internal/domain"
)

func TestInflightGroup_FollowersShareLeaderResult(t *testing.T) {
	group := newInflightGroup()

	var calls atomic.Int64
	entered := make(chan struct{})
	release := make(chan struct{})
	fn := func() *domain.OperationResult {
		calls.Add(1)
		close(entered)
		<-release
		return &domain.OperationResult{Success: true, Result: "shared"}
	}

	type outcome struct {
		result   *domain.OperationResult
		followed bool
	}
	outcomes := make(chan outcome, 2)

	go func() {
		result, followed, err := group.do(context.Background(), "key", fn)
		require.NoError(t, err)
		outcomes <- outcome{result, followed}
	}()
	<-entered
	go func() {
		result, followed, err := group.do(context.Background(), "key", fn)
		require.NoError(t, err)
		outcomes <- outcome{result, followed}
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)

	first := <-outcomes
	second := <-outcomes
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "shared", first.result.Result)
	assert.Equal(t, "shared", second.result.Result)
	assert.NotEqual(t, first.followed, second.followed, "exactly one caller leads")
}

func TestInflightGroup_DistinctKeysRunIndependently(t *testing.T) {
	group := newInflightGroup()

	var calls atomic.Int64
	fn := func() *domain.OperationResult {
		calls.Add(1)
		return &domain.OperationResult{Success: true}
	}

	_, followedA, err := group.do(context.Background(), "a", fn)
	require.NoError(t, err)
	_, followedB, err := group.do(context.Background(), "b", fn)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
	assert.False(t, followedA)
	assert.False(t, followedB)
}

func TestMasterTool_CoalescesConcurrentExecutions(t *testing.T) {
	clock := newFakeClock()
	cache := domain.NewMemoryResultCache(domain.MemoryCacheOptions{MaxEntries: 100, Now: clock.Now})
	tool := NewMasterTool(MasterToolOptions{
		Name:     "catalog",
		Version:  "1.0.0",
		Group:    domain.GroupDocuments,
		Cache:    cache,
		Coalesce: true,
		Now:      clock.Now,
	})

	var calls atomic.Int64
	var enteredOnce sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, tool.RegisterOperation(domain.Operation{
		Name:     "expensive_lookup",
		Kind:     domain.OperationRead,
		Timeout:  5 * time.Second,
		CacheTTL: 30 * time.Second,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		calls.Add(1)
		enteredOnce.Do(func() { close(entered) })
		<-release
		return "expensive value", nil
	}))

	const callers = 5
	results := make([]*domain.OperationResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = execute(tool, "expensive_lookup", map[string]any{"id": "doc-1"})
		}(i)
	}

	<-entered
	// Give the remaining callers time to join the in-flight wait, then
	// let the leader finish.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "the handler must run once across all callers")

	leaders := 0
	shared := 0
	for _, result := range results {
		require.NotNil(t, result)
		require.True(t, result.Success)
		assert.Equal(t, "expensive value", result.Result)
		coalesced, _ := result.Metadata[domain.MetaCoalesced].(bool)
		if coalesced || result.CacheHit() {
			shared++
		} else {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders)
	assert.Equal(t, callers-1, shared)

	stats := tool.Stats()
	assert.Equal(t, uint64(1), stats.TotalExecutions)
	assert.Equal(t, uint64(callers-1), stats.CacheHits)
}

func TestMasterTool_CoalescedFollowerHonorsContext(t *testing.T) {
	clock := newFakeClock()
	tool := NewMasterTool(MasterToolOptions{
		Name:     "catalog",
		Version:  "1.0.0",
		Cache:    domain.NewMemoryResultCache(domain.MemoryCacheOptions{MaxEntries: 10, Now: clock.Now}),
		Coalesce: true,
		Now:      clock.Now,
	})

	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, tool.RegisterOperation(domain.Operation{
		Name:     "blocking_lookup",
		Kind:     domain.OperationRead,
		Timeout:  10 * time.Second,
		CacheTTL: 30 * time.Second,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		close(entered)
		<-release
		return "ok", nil
	}))

	leaderDone := make(chan *domain.OperationResult, 1)
	go func() {
		leaderDone <- execute(tool, "blocking_lookup", nil)
	}()
	<-entered

	followerCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	follower := tool.Execute(followerCtx, &domain.OperationRequest{Operation: "blocking_lookup"})
	require.NotNil(t, follower)
	assert.False(t, follower.Success)
	assert.Equal(t, string(domain.CodeDeadlineExceeded), follower.Metadata[domain.MetaErrorCode])

	close(release)
	leader := <-leaderDone
	assert.True(t, leader.Success)
}

func TestMasterTool_NonCacheableOperationsAreNotCoalesced(t *testing.T) {
	clock := newFakeClock()
	tool := NewMasterTool(MasterToolOptions{
		Name:     "catalog",
		Version:  "1.0.0",
		Cache:    domain.NewMemoryResultCache(domain.MemoryCacheOptions{MaxEntries: 10, Now: clock.Now}),
		Coalesce: true,
		Now:      clock.Now,
	})

	var calls atomic.Int64
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	require.NoError(t, tool.RegisterOperation(domain.Operation{
		Name:    "create_entry",
		Kind:    domain.OperationCreate,
		Timeout: 5 * time.Second,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return "created", nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := execute(tool, "create_entry", map[string]any{"name": "same"})
			assert.True(t, result.Success)
		}()
	}

	// Both handlers must be in flight at once: side-effecting operations
	// run per call even with identical arguments.
	<-entered
	<-entered
	close(release)
	wg.Wait()

	assert.Equal(t, int64(2), calls.Load())
}
