package app

import (
	"context"

	"go.uber.org/zap"

	"webmcpd/internal/infra/config"
)

// ValidateConfig carries the validate invocation settings from the CLI.
type ValidateConfig struct {
	ConfigPath string
}

// Validate loads the configuration at the provided path and reports the
// first problem found. It never starts any runtime component.
func Validate(ctx context.Context, cfg ValidateConfig, logging LoggingConfig) error {
	logger := NewLogger(NewLogging(logging))

	loader := config.NewLoader(logger)
	serverCfg, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("listen", serverCfg.HTTP.ListenAddress),
		zap.String("cache_backend", serverCfg.Cache.Backend),
		zap.Int("client_overrides", len(serverCfg.Filters.Clients)),
		zap.Int("project_overrides", len(serverCfg.Filters.Projects)),
	)
	return nil
}
