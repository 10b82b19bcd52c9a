package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webmcpd/internal/domain"
)

type PrometheusMetrics struct {
	dispatchDuration    *prometheus.HistogramVec
	cacheRequests       *prometheus.CounterVec
	breakerTransitions  *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
	httpDuration        *prometheus.HistogramVec
	vectorStoreDuration *prometheus.HistogramVec
	registeredTools     prometheus.Gauge
	cacheEntries        *prometheus.GaugeVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webmcp_dispatch_duration_seconds",
				Help:    "Duration of dispatched tool operations in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "operation", "kind", "status"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_cache_requests_total",
				Help: "Result cache lookups partitioned by outcome",
			},
			[]string{"tool", "outcome"},
		),
		breakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_breaker_transitions_total",
				Help: "Circuit breaker state transitions",
			},
			[]string{"tool", "from", "to"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webmcp_breaker_state",
				Help: "Current breaker state per tool (0 closed, 1 half-open, 2 open)",
			},
			[]string{"tool"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webmcp_http_request_duration_seconds",
				Help:    "Duration of HTTP API requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "status"},
		),
		vectorStoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webmcp_vectorstore_call_duration_seconds",
				Help:    "Duration of vector store HTTP calls in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "status"},
		),
		registeredTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webmcp_registered_tools",
				Help: "Number of registered master tools",
			},
		),
		cacheEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webmcp_cache_entries",
				Help: "Current number of entries in the result cache",
			},
			[]string{"backend"},
		),
	}
}

func (p *PrometheusMetrics) ObserveDispatch(tool, operation string, kind domain.OperationKind, duration time.Duration, err error) {
	status := string(domain.DispatchStatusSuccess)
	if err != nil {
		status = string(domain.DispatchStatusError)
	}
	p.dispatchDuration.WithLabelValues(tool, operation, string(kind), status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveCache(tool string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheRequests.WithLabelValues(tool, outcome).Inc()
}

func (p *PrometheusMetrics) ObserveBreakerTransition(tool string, from, to domain.BreakerState) {
	p.breakerTransitions.WithLabelValues(tool, string(from), string(to)).Inc()
}

func (p *PrometheusMetrics) SetBreakerState(tool string, state domain.BreakerState) {
	p.breakerState.WithLabelValues(tool).Set(breakerStateValue(state))
}

func (p *PrometheusMetrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveVectorStoreCall(operation string, duration time.Duration, err error) {
	status := string(domain.DispatchStatusSuccess)
	if err != nil {
		status = string(domain.DispatchStatusError)
	}
	p.vectorStoreDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) SetRegisteredTools(count int) {
	p.registeredTools.Set(float64(count))
}

func (p *PrometheusMetrics) SetCacheEntries(backend string, count int) {
	p.cacheEntries.WithLabelValues(backend).Set(float64(count))
}

func breakerStateValue(state domain.BreakerState) float64 {
	switch state {
	case domain.BreakerOpen:
		return 2
	case domain.BreakerHalfOpen:
		return 1
	default:
		return 0
	}
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
