package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "webmcpd.yaml")
	normalized := strings.ReplaceAll(content, "\t", "  ")
	if err := os.WriteFile(path, []byte(normalized), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	file := writeTempConfig(t, `
store:
  path: /tmp/webmcp-test.db
`)

	loader := NewLoader(zap.NewNop())
	cfg, err := loader.Load(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultHTTPListenAddress, cfg.HTTP.ListenAddress)
	assert.Equal(t, domain.DefaultShutdownGraceSeconds, cfg.HTTP.ShutdownGraceSeconds)
	assert.Equal(t, domain.DefaultObservabilityListenAddress, cfg.Observability.ListenAddress)
	assert.True(t, cfg.Observability.EnableMetrics)
	assert.True(t, cfg.Observability.EnableHealthz)
	assert.False(t, cfg.GRPC.Enabled)
	assert.Equal(t, domain.CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, domain.DefaultCacheMaxEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, domain.DefaultCacheSweepSeconds, cfg.Cache.SweepSeconds)
	assert.Equal(t, domain.DefaultBreakerFailureThreshold, cfg.Breaker.FailureThreshold)
	assert.Equal(t, domain.DefaultBreakerRecoverySeconds, cfg.Breaker.RecoverySeconds)
	assert.False(t, cfg.Dispatch.Coalesce)
	assert.Equal(t, "/tmp/webmcp-test.db", cfg.Store.Path)
	assert.Equal(t, domain.DefaultVectorStoreBaseURL, cfg.VectorStore.BaseURL)
	assert.Equal(t, domain.DefaultVectorStoreTimeoutSeconds, cfg.VectorStore.TimeoutSeconds)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, domain.DefaultRateLimitWindowSeconds, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, domain.DefaultRateLimitMaxRequests, cfg.RateLimit.MaxRequests)
	assert.Empty(t, cfg.Filters.Clients)
	assert.Empty(t, cfg.Filters.Projects)
}

func TestLoader_FullConfig(t *testing.T) {
	file := writeTempConfig(t, `
http:
  listenAddress: 127.0.0.1:9999
  shutdownGraceSeconds: 10
observability:
  listenAddress: 127.0.0.1:9998
  enableMetrics: false
grpc:
  enabled: true
  listenAddress: 127.0.0.1:9997
cache:
  backend: bolt
  boltPath: /tmp/cache.db
  maxEntries: 500
  sweepSeconds: 30
breaker:
  failureThreshold: 5
  recoverySeconds: 60
dispatch:
  coalesce: true
store:
  path: /tmp/entities.db
vectorStore:
  baseURL: http://vector.internal:8000/
  timeoutSeconds: 3
rateLimit:
  enabled: false
`)

	loader := NewLoader(zap.NewNop())
	cfg, err := loader.Load(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.ListenAddress)
	assert.Equal(t, 10, cfg.HTTP.ShutdownGraceSeconds)
	assert.Equal(t, "127.0.0.1:9998", cfg.Observability.ListenAddress)
	assert.False(t, cfg.Observability.EnableMetrics)
	assert.True(t, cfg.GRPC.Enabled)
	assert.Equal(t, "127.0.0.1:9997", cfg.GRPC.ListenAddress)
	assert.Equal(t, domain.CacheBackendBolt, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/cache.db", cfg.Cache.BoltPath)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 30, cfg.Cache.SweepSeconds)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60, cfg.Breaker.RecoverySeconds)
	assert.True(t, cfg.Dispatch.Coalesce)
	assert.Equal(t, "/tmp/entities.db", cfg.Store.Path)
	assert.Equal(t, "http://vector.internal:8000", cfg.VectorStore.BaseURL)
	assert.Equal(t, 3, cfg.VectorStore.TimeoutSeconds)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("WEBMCP_STORE", "/data/store.db")
	t.Setenv("WEBMCP_HTTP_PORT", "18080")
	file := writeTempConfig(t, `
http:
  listenAddress: "127.0.0.1:${WEBMCP_HTTP_PORT}"
store:
  path: ${WEBMCP_STORE}
`)

	loader := NewLoader(zap.NewNop())
	cfg, err := loader.Load(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18080", cfg.HTTP.ListenAddress)
	assert.Equal(t, "/data/store.db", cfg.Store.Path)
}

func TestLoader_EnvExpansionNumeric(t *testing.T) {
	t.Setenv("WEBMCP_THRESHOLD", "7")
	file := writeTempConfig(t, `
breaker:
  failureThreshold: ${WEBMCP_THRESHOLD}
`)

	loader := NewLoader(zap.NewNop())
	cfg, err := loader.Load(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Breaker.FailureThreshold)
}

func TestLoader_MissingEnvBecomesEmpty(t *testing.T) {
	file := writeTempConfig(t, `
store:
  path: ${WEBMCP_NO_SUCH_VAR}
`)

	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestLoader_ValidationErrorsJoined(t *testing.T) {
	file := writeTempConfig(t, `
http:
  listenAddress: ""
  shutdownGraceSeconds: -1
cache:
  backend: redis
  maxEntries: 0
breaker:
  failureThreshold: 0
store:
  path: ""
vectorStore:
  baseURL: not-a-url
`)

	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.listenAddress is required")
	assert.Contains(t, err.Error(), "http.shutdownGraceSeconds must be >= 0")
	assert.Contains(t, err.Error(), "cache.backend must be memory or bolt")
	assert.Contains(t, err.Error(), "cache.maxEntries must be > 0")
	assert.Contains(t, err.Error(), "breaker.failureThreshold must be > 0")
	assert.Contains(t, err.Error(), "store.path is required")
	assert.Contains(t, err.Error(), "vectorStore.baseURL must be a valid http(s) URL")
}

func TestLoader_BoltBackendNeedsPath(t *testing.T) {
	file := writeTempConfig(t, `
cache:
  backend: bolt
`)

	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.boltPath is required")
}

func TestLoader_FilterOverrides(t *testing.T) {
	file := writeTempConfig(t, `
filters:
  clients:
    web:
      enabledGroups: [task_management, documents]
      disabledPatterns: ["workflow*"]
      maxTools: 5
  projects:
    library:
      enabledGroups: [planning]
`)

	loader := NewLoader(zap.NewNop())
	cfg, err := loader.Load(context.Background(), file)
	require.NoError(t, err)

	require.Contains(t, cfg.Filters.Clients, domain.ClientWeb)
	expect := domain.ClientToolPolicy{
		EnabledGroups:    []domain.ToolGroup{domain.GroupTaskManagement, domain.GroupDocuments},
		DisabledPatterns: []string{"workflow*"},
		MaxTools:         5,
	}
	if diff := cmp.Diff(expect, cfg.Filters.Clients[domain.ClientWeb]); diff != "" {
		t.Fatalf("client policy mismatch (-want +got):\n%s", diff)
	}

	require.Contains(t, cfg.Filters.Projects, domain.ProjectLibrary)
	library := cfg.Filters.Projects[domain.ProjectLibrary]
	assert.Equal(t, []domain.ToolGroup{domain.GroupPlanning}, library.EnabledGroups)
}

func TestLoader_FilterOverrideUnknownNames(t *testing.T) {
	file := writeTempConfig(t, `
filters:
  clients:
    browser:
      enabledGroups: [task_management]
    ide:
      enabledGroups: [gardening]
  projects:
    monorepo:
      enabledGroups: [planning]
`)

	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filters.clients.browser: unknown client type")
	assert.Contains(t, err.Error(), `filters.clients.ide: unknown tool group "gardening"`)
	assert.Contains(t, err.Error(), "filters.projects.monorepo: unknown project type")
}

func TestLoader_PathRequired(t *testing.T) {
	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path is required")
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoader_EmptyFileUsesDefaults(t *testing.T) {
	file := writeTempConfig(t, "# nothing configured yet\n")

	loader := NewLoader(zap.NewNop())
	cfg, err := loader.Load(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultHTTPListenAddress, cfg.HTTP.ListenAddress)
	assert.Equal(t, domain.DefaultStorePath, cfg.Store.Path)
}

func TestLoader_ContextCanceled(t *testing.T) {
	file := writeTempConfig(t, `
store:
  path: /tmp/webmcp-test.db
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(zap.NewNop())
	_, err := loader.Load(ctx, file)
	require.ErrorIs(t, err, context.Canceled)
}
