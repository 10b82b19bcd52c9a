package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"webmcpd/internal/buildinfo"
	"webmcpd/internal/domain"
	"webmcpd/internal/infra/bmad"
	"webmcpd/internal/infra/boltcache"
	"webmcpd/internal/infra/config"
	"webmcpd/internal/infra/filter"
	"webmcpd/internal/infra/httpapi"
	"webmcpd/internal/infra/maintenance"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
	"webmcpd/internal/infra/vectorstore"
)

func NewServerConfig(ctx context.Context, cfg ServeConfig, logger *zap.Logger) (domain.ServerConfig, error) {
	loader := config.NewLoader(logger)
	return loader.Load(ctx, cfg.ConfigPath)
}

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func NewStore(cfg domain.ServerConfig, logger *zap.Logger) (*bmad.Store, func(), error) {
	store, err := bmad.OpenStore(bmad.StoreOptions{Path: cfg.Store.Path})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("entity store close failed", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

func NewVectorStoreClient(cfg domain.ServerConfig, logger *zap.Logger, metrics domain.Metrics) *vectorstore.Client {
	return vectorstore.New(vectorstore.Options{
		BaseURL: cfg.VectorStore.BaseURL,
		Timeout: cfg.VectorStore.Timeout(),
		Logger:  logger,
		Metrics: metrics,
	})
}

func NewResultCache(cfg domain.ServerConfig, logger *zap.Logger) (domain.ResultCache, func(), error) {
	switch cfg.Cache.Backend {
	case domain.CacheBackendBolt:
		cache, err := boltcache.Open(boltcache.Options{
			Path:   cfg.Cache.BoltPath,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := cache.Close(); err != nil {
				logger.Warn("result cache close failed", zap.Error(err))
			}
		}
		return cache, cleanup, nil
	default:
		cache := domain.NewMemoryResultCache(domain.MemoryCacheOptions{
			MaxEntries: cfg.Cache.MaxEntries,
		})
		return cache, func() {}, nil
	}
}

// NewRegistry builds the tool registry and registers the BMAD catalog.
// A registration failure aborts startup: a registry missing tools or
// operations would serve a silently wrong surface.
func NewRegistry(
	cfg domain.ServerConfig,
	store *bmad.Store,
	vector *vectorstore.Client,
	cache domain.ResultCache,
	logger *zap.Logger,
	metrics domain.Metrics,
) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger, metrics)

	tools, err := bmad.Tools(bmad.Options{
		Store:    store,
		Vector:   vector,
		Cache:    cache,
		Breaker:  cfg.Breaker,
		Coalesce: cfg.Dispatch.Coalesce,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, err
	}
	for _, tool := range tools {
		if err := reg.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func NewFilter(cfg domain.ServerConfig, logger *zap.Logger) *filter.Filter {
	fl := filter.New(filter.Options{
		Clients:  cfg.Filters.Clients,
		Projects: cfg.Filters.Projects,
		Logger:   logger,
	})
	manifest, err := filter.NewManifestLoader(logger).Load(".")
	if err != nil {
		logger.Warn("project manifest ignored", zap.Error(err))
		return fl
	}
	fl.ApplyManifest(manifest)
	return fl
}

func NewRateLimiter(cfg domain.ServerConfig) *filter.RateLimiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return filter.NewRateLimiter(filter.RateLimiterOptions{
		Window:      cfg.RateLimit.Window(),
		MaxRequests: cfg.RateLimit.MaxRequests,
	})
}

func NewHTTPServer(
	cfg domain.ServerConfig,
	reg *registry.Registry,
	fl *filter.Filter,
	limiter *filter.RateLimiter,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
	metrics domain.Metrics,
) *httpapi.Server {
	return httpapi.NewServer(httpapi.Options{
		ListenAddress: cfg.HTTP.ListenAddress,
		ShutdownGrace: cfg.HTTP.ShutdownGrace(),
		AuthToken:     cfg.HTTP.AuthToken,
		Version:       buildinfo.Version,
		Build:         buildinfo.Build,
		Registry:      reg,
		Filter:        fl,
		Limiter:       limiter,
		Health:        health,
		Logger:        logger,
		Metrics:       metrics,
	})
}

func NewMaintenance(
	cfg domain.ServerConfig,
	cache domain.ResultCache,
	reg *registry.Registry,
	vector *vectorstore.Client,
	health *telemetry.HealthTracker,
	metrics domain.Metrics,
	logger *zap.Logger,
) *maintenance.Runner {
	return maintenance.NewRunner(maintenance.Options{
		Cache:         cache,
		CacheBackend:  cfg.Cache.Backend,
		Registry:      reg,
		Vector:        vector,
		Health:        health,
		Metrics:       metrics,
		Logger:        logger,
		SweepInterval: cfg.Cache.SweepInterval(),
	})
}

// NewConfigWatcher hot-reloads filter overrides when the config file
// changes. Everything else keeps the boot-time value: swapping cache
// backends or listen addresses mid-flight is a restart, not a reload.
func NewConfigWatcher(cfg ServeConfig, fl *filter.Filter, logger *zap.Logger) *config.Watcher {
	return config.NewWatcher(config.WatcherOptions{
		Path:   cfg.ConfigPath,
		Logger: logger,
		OnChange: func(next domain.ServerConfig) {
			fl.Apply(next.Filters.Clients, next.Filters.Projects)
		},
	})
}
