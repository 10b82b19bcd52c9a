package domain

const (
	DefaultHTTPListenAddress          = "0.0.0.0:8080"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultGRPCListenAddress          = "0.0.0.0:9091"
	DefaultBreakerFailureThreshold    = 3
	DefaultBreakerRecoverySeconds     = 30
	DefaultOperationTimeoutSeconds    = 30
	DefaultCacheBackend               = "memory"
	DefaultCacheMaxEntries            = 10000
	DefaultCacheSweepSeconds          = 60
	DefaultStorePath                  = "webmcp.db"
	DefaultVectorStoreBaseURL         = "http://127.0.0.1:8000"
	DefaultVectorStoreTimeoutSeconds  = 10
	DefaultRateLimitWindowSeconds     = 60
	DefaultRateLimitMaxRequests       = 120
	DefaultMaxToolsPerClient          = 50
	DefaultHealthBeatTTLSeconds       = 90
	DefaultShutdownGraceSeconds       = 5
	DefaultManifestFileName           = ".webmcp.toml"
)
