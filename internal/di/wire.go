//go:build wireinject
// +build wireinject

package di

import (
	"RailScan/pkg/config"
	"RailScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseStores,
		ProvideKafkaProducer,
		ProvideHub,

		// Repositories
		ProvideBarArchive,
		ProvideResultStore,
		ProvideSignalPublisher,

		// Use cases
		ProvideLoader,
		ProvideAnalyzer,
		ProvideScanner,
		ProvideQueue,
		ProvideScanJobs,

		// Inbound adapters
		ProvideKafkaConsumer,
		ProvideScheduler,
		ProvideScannerHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
