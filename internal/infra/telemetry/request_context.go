package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const RequestIDHeader = "x-request-id"

type requestContextKey struct{}

// RequestMeta carries the request correlation identifiers attached to a
// context by the transport layer.
type RequestMeta struct {
	RequestID string
	TraceID   string
	SpanID    string
}

func (m RequestMeta) IsZero() bool {
	return m.RequestID == "" && m.TraceID == "" && m.SpanID == ""
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if meta.IsZero() {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestContextKey{}).(RequestMeta)
	return meta, ok && !meta.IsZero()
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	meta, ok := RequestMetaFromContext(ctx)
	if !ok || meta.RequestID == "" {
		return "", false
	}
	return meta.RequestID, true
}

func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestMeta attaches correlation metadata to ctx, reusing any
// existing request ID, then the provided one, then a fresh UUID. Trace
// and span IDs come from the active otel span context when it is valid.
func EnsureRequestMeta(ctx context.Context, requestID string) (context.Context, RequestMeta) {
	if existing, ok := RequestMetaFromContext(ctx); ok {
		if requestID == "" {
			requestID = existing.RequestID
		}
	}
	if requestID == "" {
		requestID = NewRequestID()
	}

	traceID, spanID := traceSpanFromContext(ctx)
	meta := RequestMeta{
		RequestID: requestID,
		TraceID:   traceID,
		SpanID:    spanID,
	}
	return WithRequestMeta(ctx, meta), meta
}

func traceSpanFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

func requestFields(meta RequestMeta) []zap.Field {
	if meta.IsZero() {
		return nil
	}
	fields := make([]zap.Field, 0, 3)
	if meta.RequestID != "" {
		fields = append(fields, RequestIDField(meta.RequestID))
	}
	if meta.TraceID != "" {
		fields = append(fields, TraceIDField(meta.TraceID))
	}
	if meta.SpanID != "" {
		fields = append(fields, SpanIDField(meta.SpanID))
	}
	return fields
}

func RequestFieldsFromContext(ctx context.Context) []zap.Field {
	meta, ok := RequestMetaFromContext(ctx)
	if !ok {
		return nil
	}
	return requestFields(meta)
}

// LoggerWithRequest returns base annotated with the context's request,
// trace, and span IDs when present.
func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := RequestFieldsFromContext(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
