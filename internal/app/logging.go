package app

import (
	"go.uber.org/zap"

	"webmcpd/internal/infra/telemetry"
)

// LoggingConfig configures logging wiring.
type LoggingConfig struct {
	Logger *zap.Logger
}

// Logging bundles the application logger.
type Logging struct {
	Logger *zap.Logger
}

// NewLogging constructs logging dependencies.
func NewLogging(cfg LoggingConfig) Logging {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String(telemetry.FieldLogSource, telemetry.LogSourceCore)).Named("app")
	return Logging{Logger: logger}
}

// NewLogger returns the logger from a Logging bundle.
func NewLogger(logging Logging) *zap.Logger {
	return logging.Logger
}
