//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewLogging,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var RuntimeSet = wire.NewSet(
	NewServerConfig,
	NewStore,
	NewVectorStoreClient,
	NewResultCache,
	NewRegistry,
	NewFilter,
	NewRateLimiter,
	NewHTTPServer,
	NewMaintenance,
	NewConfigWatcher,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	RuntimeSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
