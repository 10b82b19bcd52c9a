package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	CodeUnavailable        ErrorCode = "UNAVAILABLE"
	CodeFailedPrecondition ErrorCode = "FAILED_PRECONDITION"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeResourceExhausted  ErrorCode = "RESOURCE_EXHAUSTED"
	CodeInternal           ErrorCode = "INTERNAL"
	CodeCanceled           ErrorCode = "CANCELED"
	CodeDeadlineExceeded   ErrorCode = "DEADLINE_EXCEEDED"
)

var (
	ErrToolNotFound       = errors.New("master tool not found")
	ErrOperationNotFound  = errors.New("operation not found")
	ErrToolDisabled       = errors.New("tool disabled for client")
	ErrCircuitOpen        = errors.New("circuit breaker is open")
	ErrDuplicateOperation = errors.New("duplicate operation name")
	ErrDuplicateTool      = errors.New("duplicate tool name")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrTaskNotFound       = errors.New("task not found")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrWorkflowNotFound   = errors.New("workflow not found")
)

type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Cause     error
	Retryable bool
	Meta      map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:      existing.Code,
			Op:        op,
			Message:   existing.Message,
			Cause:     existing.Cause,
			Retryable: existing.Retryable,
			Meta:      existing.Meta,
		}
	}
	return E(code, op, "", err)
}

// CodeFrom extracts the error code from err, mapping the package
// sentinels and context errors; anything unrecognized is INTERNAL.
func CodeFrom(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}
	switch {
	case errors.Is(err, ErrToolNotFound), errors.Is(err, ErrOperationNotFound),
		errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrPlanNotFound),
		errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrWorkflowNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateOperation), errors.Is(err, ErrDuplicateTool):
		return CodeAlreadyExists
	case errors.Is(err, ErrToolDisabled):
		return CodePermissionDenied
	case errors.Is(err, ErrCircuitOpen):
		return CodeUnavailable
	case errors.Is(err, ErrRateLimited):
		return CodeResourceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// Retryable reports whether the error carries a transient failure code.
func Retryable(err error) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return errors.Is(err, ErrCircuitOpen)
}
