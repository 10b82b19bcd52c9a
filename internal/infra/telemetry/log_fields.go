package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent       = "event"
	FieldLogSource   = "log_source"
	FieldTool        = "tool"
	FieldOperation   = "operation"
	FieldKind        = "kind"
	FieldState       = "state"
	FieldRoute       = "route"
	FieldClientType  = "client_type"
	FieldProjectType = "project_type"
	FieldCacheKey    = "cache_key"
	FieldDurationMs  = "duration_ms"
	FieldRequestID   = "request_id"
	FieldTraceID     = "trace_id"
	FieldSpanID      = "span_id"
)

// LogSourceCore labels log lines emitted by the daemon itself, as
// opposed to lines relayed from collaborators.
const LogSourceCore = "core"

const (
	EventRegisterTool      = "register_tool"
	EventDispatchFailure   = "dispatch_failure"
	EventPanicRecovered    = "panic_recovered"
	EventCacheHit          = "cache_hit"
	EventCacheSweep        = "cache_sweep"
	EventBreakerTransition = "breaker_transition"
	EventRateLimited       = "rate_limited"
	EventConfigReload      = "config_reload"
	EventManifestReload    = "manifest_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func OperationField(operation string) zap.Field {
	return zap.String(FieldOperation, operation)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func RouteField(route string) zap.Field {
	return zap.String(FieldRoute, route)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
