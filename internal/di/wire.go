//go:build wireinject
// +build wireinject

package di

import (
	"KolTrack/pkg/config"
	"KolTrack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvideStore,

		// Core services
		ProvideLedger,
		ProvidePnLEngine,
		ProvideProfiler,
		ProvideDetector,
		ProvideAggregator,
		ProvideGenerator,
		ProvideTracker,

		// Feeds and jobs
		ProvideSwapStream,
		ProvideSwapCollector,
		ProvideSwapsConsumer,
		ProvideScheduler,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
