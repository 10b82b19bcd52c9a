package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webmcpd/internal/app"
	"webmcpd/internal/buildinfo"
	"webmcpd/internal/domain"
	"webmcpd/internal/infra/mcpserver"
	"webmcpd/internal/infra/telemetry"
)

type bridgeOptions struct {
	configPath string
	clientType string
	logger     *zap.Logger
}

func main() {
	_ = godotenv.Load()

	opts := bridgeOptions{
		configPath: "webmcpd.yaml",
		clientType: string(domain.ClientIDE),
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:   "webmcpmcp",
		Short: "MCP stdio bridge exposing the master tools to one client",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Stdout carries the MCP stream; zap's production config
			// already keeps log output on stderr.
			cfg := zap.NewProductionConfig()
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return runBridge(ctx, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to server config file")
	root.PersistentFlags().StringVar(&opts.clientType, "client-type", opts.clientType, "client type the bridge identifies as (ide, cli, web, mobile)")

	if err := root.Execute(); err != nil {
		opts.logger.Fatal("command failed", zap.Error(err))
	}
}

// runBridge wires a registry in-process and serves it over stdio. The
// bridge carries no observability endpoint, so metrics are noop.
func runBridge(ctx context.Context, opts bridgeOptions) error {
	logger := app.NewLogger(app.NewLogging(app.LoggingConfig{Logger: opts.logger}))

	serverCfg, err := app.NewServerConfig(ctx, app.ServeConfig{ConfigPath: opts.configPath}, logger)
	if err != nil {
		return err
	}

	metrics := telemetry.NewNoopMetrics()

	store, storeCleanup, err := app.NewStore(serverCfg, logger)
	if err != nil {
		return err
	}
	defer storeCleanup()

	cache, cacheCleanup, err := app.NewResultCache(serverCfg, logger)
	if err != nil {
		return err
	}
	defer cacheCleanup()

	vector := app.NewVectorStoreClient(serverCfg, logger, metrics)

	reg, err := app.NewRegistry(serverCfg, store, vector, cache, logger, metrics)
	if err != nil {
		return err
	}

	srv := mcpserver.New(mcpserver.Options{
		Registry:   reg,
		Filter:     app.NewFilter(serverCfg, logger),
		ClientType: domain.NormalizeClientType(opts.clientType),
		Name:       "webmcpd",
		Version:    buildinfo.Version,
		Logger:     logger,
	})

	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
