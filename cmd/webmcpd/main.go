package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webmcpd/internal/app"
)

type serveOptions struct {
	configPath string
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := serveOptions{
		configPath: "webmcpd.yaml",
	}

	root := &cobra.Command{
		Use:   "webmcpd",
		Short: "Master-tool MCP daemon with filtered, cached, breaker-guarded dispatch",
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to server config file")

	root.AddCommand(
		newServeCmd(logger, &opts),
		newValidateCmd(logger, &opts),
	)

	return root
}

func newServeCmd(logger *zap.Logger, opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the master-tool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application, cleanup, err := app.InitializeApplication(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
			}, app.LoggingConfig{Logger: logger})
			if err != nil {
				return err
			}
			defer cleanup()

			return application.Run()
		},
	}

	return cmd
}

func newValidateCmd(logger *zap.Logger, opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate server configuration without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Validate(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			}, app.LoggingConfig{Logger: logger})
		},
	}

	return cmd
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
