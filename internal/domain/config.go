package domain

import "time"

// ServerConfig is the fully normalized daemon configuration.
type ServerConfig struct {
	HTTP          HTTPConfig
	Observability ObservabilityConfig
	GRPC          GRPCConfig
	Cache         CacheConfig
	Breaker       BreakerConfig
	Dispatch      DispatchConfig
	Store         StoreConfig
	VectorStore   VectorStoreConfig
	RateLimit     RateLimitConfig
	Filters       FilterOverrides
}

// HTTPConfig configures the public HTTP facade. AuthToken, when set,
// is the bearer token required by operations that declare RequiresAuth;
// when empty those operations are open.
type HTTPConfig struct {
	ListenAddress        string
	ShutdownGraceSeconds int
	AuthToken            string
}

// ObservabilityConfig configures the metrics/health endpoint.
type ObservabilityConfig struct {
	ListenAddress string
	EnableMetrics bool
	EnableHealthz bool
}

// GRPCConfig configures the optional gRPC health endpoint.
type GRPCConfig struct {
	Enabled       bool
	ListenAddress string
}

// Cache backend names accepted by CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendBolt   = "bolt"
)

// CacheConfig selects and sizes the result cache backend.
type CacheConfig struct {
	Backend      string
	MaxEntries   int
	BoltPath     string
	SweepSeconds int
}

// BreakerConfig configures per-tool circuit breakers.
type BreakerConfig struct {
	FailureThreshold int
	RecoverySeconds  int
}

// DispatchConfig tunes the dispatch path.
type DispatchConfig struct {
	// Coalesce enables in-flight request coalescing per cache key.
	Coalesce bool
}

// StoreConfig locates the entity store.
type StoreConfig struct {
	Path string
}

// VectorStoreConfig locates the vector store collaborator.
type VectorStoreConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// RateLimitConfig bounds request rates per client type with a fixed
// window counter.
type RateLimitConfig struct {
	Enabled       bool
	WindowSeconds int
	MaxRequests   int
}

// FilterOverrides replaces the built-in visibility tables per type.
type FilterOverrides struct {
	Clients  map[ClientType]ClientToolPolicy
	Projects map[ProjectType]ProjectToolPolicy
}

// ShutdownGrace returns the HTTP drain window, applying defaults.
func (c HTTPConfig) ShutdownGrace() time.Duration {
	seconds := c.ShutdownGraceSeconds
	if seconds <= 0 {
		seconds = DefaultShutdownGraceSeconds
	}
	return time.Duration(seconds) * time.Second
}

// SweepInterval returns the cache sweep period, applying defaults.
func (c CacheConfig) SweepInterval() time.Duration {
	seconds := c.SweepSeconds
	if seconds <= 0 {
		seconds = DefaultCacheSweepSeconds
	}
	return time.Duration(seconds) * time.Second
}

// Recovery returns the breaker cooldown, applying defaults.
func (c BreakerConfig) Recovery() time.Duration {
	seconds := c.RecoverySeconds
	if seconds <= 0 {
		seconds = DefaultBreakerRecoverySeconds
	}
	return time.Duration(seconds) * time.Second
}

// Timeout returns the collaborator request timeout, applying defaults.
func (c VectorStoreConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultVectorStoreTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// Window returns the rate limit window, applying defaults.
func (c RateLimitConfig) Window() time.Duration {
	seconds := c.WindowSeconds
	if seconds <= 0 {
		seconds = DefaultRateLimitWindowSeconds
	}
	return time.Duration(seconds) * time.Second
}
