package telemetry

import (
	"time"

	"webmcpd/internal/domain"
)

// NoopMetrics discards every observation. Used when metrics are disabled
// and as the default in tests.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveDispatch(_, _ string, _ domain.OperationKind, _ time.Duration, _ error) {
}

func (n *NoopMetrics) ObserveCache(_ string, _ bool) {}

func (n *NoopMetrics) ObserveBreakerTransition(_ string, _, _ domain.BreakerState) {}

func (n *NoopMetrics) SetBreakerState(_ string, _ domain.BreakerState) {}

func (n *NoopMetrics) ObserveHTTPRequest(_, _ string, _ int, _ time.Duration) {}

func (n *NoopMetrics) ObserveVectorStoreCall(_ string, _ time.Duration, _ error) {}

func (n *NoopMetrics) SetRegisteredTools(_ int) {}

func (n *NoopMetrics) SetCacheEntries(_ string, _ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
