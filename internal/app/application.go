package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/config"
	"webmcpd/internal/infra/httpapi"
	"webmcpd/internal/infra/maintenance"
	"webmcpd/internal/infra/telemetry"
)

// Application wires the daemon runtime and dependencies.
type Application struct {
	ctx        context.Context
	configPath string
	cfg        domain.ServerConfig

	logger      *zap.Logger
	registry    *prometheus.Registry
	health      *telemetry.HealthTracker
	httpServer  *httpapi.Server
	maintenance *maintenance.Runner
	watcher     *config.Watcher
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context     context.Context
	ServeConfig ServeConfig
	Config      domain.ServerConfig
	Logger      *zap.Logger
	Registry    *prometheus.Registry
	Health      *telemetry.HealthTracker
	HTTPServer  *httpapi.Server
	Maintenance *maintenance.Runner
	Watcher     *config.Watcher
}

// NewApplication constructs the daemon runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Application{
		ctx:         ctx,
		configPath:  opts.ServeConfig.ConfigPath,
		cfg:         opts.Config,
		logger:      opts.Logger,
		registry:    opts.Registry,
		health:      opts.Health,
		httpServer:  opts.HTTPServer,
		maintenance: opts.Maintenance,
		watcher:     opts.Watcher,
	}
}

// Run starts the daemon services and blocks until shutdown. Teardown
// runs in reverse start order: the facade drains first, then the
// maintenance runner stops, then the ctx-bound observability endpoints
// fall away with the context.
func (a *Application) Run() error {
	a.logger.Info("configuration loaded",
		zap.String("config", a.configPath),
		zap.String("listen", a.cfg.HTTP.ListenAddress),
		zap.String("cache_backend", a.cfg.Cache.Backend),
	)

	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	go func() {
		err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          a.cfg.Observability.ListenAddress,
			EnableMetrics: a.cfg.Observability.EnableMetrics,
			EnableHealthz: a.cfg.Observability.EnableHealthz,
			Health:        a.health,
			Registry:      a.registry,
		}, a.logger)
		if err != nil {
			a.logger.Error("observability server failed", zap.Error(err))
		}
	}()

	if a.cfg.GRPC.Enabled {
		go func() {
			err := telemetry.StartGRPCHealthServer(ctx, telemetry.GRPCServerOptions{
				Addr: a.cfg.GRPC.ListenAddress,
			}, a.logger)
			if err != nil {
				a.logger.Error("grpc health server failed", zap.Error(err))
			}
		}()
	}

	if err := a.maintenance.Start(ctx); err != nil {
		return err
	}
	defer a.maintenance.Stop()

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested")
	<-a.httpServer.Done()
	return nil
}
