package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Deterministic(t *testing.T) {
	args := map[string]any{"x": 1, "y": "two", "z": []any{1, 2, 3}}

	first, err := CacheKey("task", "get_task", args)
	require.NoError(t, err)
	second, err := CacheKey("task", "get_task", args)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestCacheKey_InsertionOrderIndependent(t *testing.T) {
	// Build two maps with the same entries inserted in opposite order.
	forward := map[string]any{}
	backward := map[string]any{}
	for i := 0; i < 10; i++ {
		forward[fmt.Sprintf("k%d", i)] = i
	}
	for i := 9; i >= 0; i-- {
		backward[fmt.Sprintf("k%d", i)] = i
	}

	keyForward, err := CacheKey("task", "list_tasks", forward)
	require.NoError(t, err)
	keyBackward, err := CacheKey("task", "list_tasks", backward)
	require.NoError(t, err)

	assert.Equal(t, keyForward, keyBackward)
}

func TestCacheKey_NestedArguments(t *testing.T) {
	a := map[string]any{"filter": map[string]any{"status": "open", "assignee": "ana"}}
	b := map[string]any{"filter": map[string]any{"assignee": "ana", "status": "open"}}

	keyA, err := CacheKey("task", "search_tasks", a)
	require.NoError(t, err)
	keyB, err := CacheKey("task", "search_tasks", b)
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)
}

func TestCacheKey_DistinguishesInputs(t *testing.T) {
	base, err := CacheKey("task", "get_task", map[string]any{"id": "t-1"})
	require.NoError(t, err)

	otherArgs, err := CacheKey("task", "get_task", map[string]any{"id": "t-2"})
	require.NoError(t, err)
	otherOp, err := CacheKey("task", "list_tasks", map[string]any{"id": "t-1"})
	require.NoError(t, err)
	otherTool, err := CacheKey("plan", "get_task", map[string]any{"id": "t-1"})
	require.NoError(t, err)

	assert.NotEqual(t, base, otherArgs)
	assert.NotEqual(t, base, otherOp)
	assert.NotEqual(t, base, otherTool)
}

func TestCacheKey_NilArgumentsEqualEmpty(t *testing.T) {
	withNil, err := CacheKey("task", "list_tasks", nil)
	require.NoError(t, err)
	withEmpty, err := CacheKey("task", "list_tasks", map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, withNil, withEmpty)
}

func TestCacheKey_NonSerializableFailsLoudly(t *testing.T) {
	_, err := CacheKey("task", "get_task", map[string]any{"ch": make(chan int)})
	require.Error(t, err)

	assert.Equal(t, CodeInvalidArgument, CodeFrom(err))
}

func BenchmarkCacheKey(b *testing.B) {
	args := map[string]any{
		"id":     "task-123",
		"filter": map[string]any{"status": "open", "assignee": "ana"},
		"limit":  50,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := CacheKey("task", "search_tasks", args); err != nil {
			b.Fatal(err)
		}
	}
}
