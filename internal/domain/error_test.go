package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFrom(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"typed error", E(CodeUnavailable, "op", "down", nil), CodeUnavailable},
		{"tool not found", ErrToolNotFound, CodeNotFound},
		{"operation not found", ErrOperationNotFound, CodeNotFound},
		{"task not found", ErrTaskNotFound, CodeNotFound},
		{"duplicate operation", ErrDuplicateOperation, CodeAlreadyExists},
		{"duplicate tool", ErrDuplicateTool, CodeAlreadyExists},
		{"tool disabled", ErrToolDisabled, CodePermissionDenied},
		{"circuit open", ErrCircuitOpen, CodeUnavailable},
		{"rate limited", ErrRateLimited, CodeResourceExhausted},
		{"deadline", context.DeadlineExceeded, CodeDeadlineExceeded},
		{"canceled", context.Canceled, CodeCanceled},
		{"unknown", errors.New("disk on fire"), CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeFrom(tc.err))
		})
	}
}

func TestCodeFrom_WrappedSentinel(t *testing.T) {
	err := E(CodeNotFound, "registry.Execute", "no such operation", ErrOperationNotFound)
	assert.Equal(t, CodeNotFound, CodeFrom(err))
	assert.True(t, errors.Is(err, ErrOperationNotFound))
}

func TestError_Format(t *testing.T) {
	err := E(CodeNotFound, "store.GetTask", "task t-1 does not exist", nil)
	assert.Equal(t, "store.GetTask: NOT_FOUND: task t-1 does not exist", err.Error())

	bare := E(CodeInternal, "", "", errors.New("boom"))
	assert.Equal(t, "INTERNAL: boom", bare.Error())
}

func TestWrap_PreservesTypedErrors(t *testing.T) {
	inner := E(CodeInvalidArgument, "domain.CacheKey", "bad args", nil)
	wrapped := Wrap(CodeInternal, "registry.Execute", inner)
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInvalidArgument, wrapped.Code)
	assert.Equal(t, "domain.CacheKey", wrapped.Op)

	assert.Nil(t, Wrap(CodeInternal, "op", nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&Error{Code: CodeUnavailable, Retryable: true}))
	assert.False(t, Retryable(E(CodeNotFound, "op", "gone", nil)))
	assert.True(t, Retryable(ErrCircuitOpen))
	assert.False(t, Retryable(errors.New("plain")))
}
