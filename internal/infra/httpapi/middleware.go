package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/filter"
	"webmcpd/internal/infra/telemetry"
)

const (
	headerClientType  = "X-Client-Type"
	headerProjectType = "X-Project-Type"
)

// statusRecorder remembers the status code written by the inner handler so
// the logging and metrics middleware can report it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeTemplate returns the matched mux pattern, e.g.
// "/mcp/master-tools/{tool}/stats", keeping metric cardinality bounded.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return "unmatched"
}

func clientTypeFromRequest(r *http.Request) domain.ClientType {
	raw := r.URL.Query().Get("client_type")
	if raw == "" {
		raw = r.Header.Get(headerClientType)
	}
	return domain.NormalizeClientType(raw)
}

// requestIDMiddleware adopts the caller's x-request-id or mints one, stores
// the request metadata in the context, and echoes the id back in the
// response headers.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, meta := telemetry.EnsureRequestMeta(r.Context(), r.Header.Get(telemetry.RequestIDHeader))
		w.Header().Set(telemetry.RequestIDHeader, meta.RequestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLogMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := newStatusRecorder(w)
			next.ServeHTTP(recorder, r)
			telemetry.LoggerWithRequest(r.Context(), logger).Info("http request",
				zap.String("method", r.Method),
				telemetry.RouteField(routeTemplate(r)),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				telemetry.DurationField(time.Since(start)),
			)
		})
	}
}

func metricsMiddleware(metrics domain.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := newStatusRecorder(w)
			next.ServeHTTP(recorder, r)
			metrics.ObserveHTTPRequest(routeTemplate(r), r.Method, recorder.status, time.Since(start))
		})
	}
}

// recoveryMiddleware converts handler panics into 500 responses. It is the
// innermost middleware so the access log and metrics still see the 500.
func recoveryMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					telemetry.LoggerWithRequest(r.Context(), logger).Error("panic while serving request",
						telemetry.EventField(telemetry.EventPanicRecovered),
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					writeError(w, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests over the per-client-type budget.
// Mounted on the /mcp subrouter only, so health probes are never throttled.
func rateLimitMiddleware(limiter *filter.RateLimiter, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientTypeFromRequest(r)
			if !limiter.Allow(client) {
				telemetry.LoggerWithRequest(r.Context(), logger).Warn("request rate limited",
					telemetry.EventField(telemetry.EventRateLimited),
					zap.String(telemetry.FieldClientType, string(client)),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusTooManyRequests, domain.CodeResourceExhausted,
					fmt.Sprintf("rate limit exceeded for client type %q", client))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
