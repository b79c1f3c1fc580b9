//go:build wireinject
// +build wireinject

package di

import (
	"ratewatch/pkg/config"
	"ratewatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideCacheBackend,
		ProvideKafkaConsumer,

		// Repositories and collaborators
		ProvideRateStore,
		ProvideRateCache,
		ProvidePriceSource,

		// Use cases
		ProvideIngestUseCase,
		ProvideQueryUseCase,
		ProvideRetentionUseCase,
		ProvideKafkaIngestHandler,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
