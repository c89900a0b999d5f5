//go:build wireinject
// +build wireinject

package di

import (
	"FinSight/pkg/config"
	"FinSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTransactionStorage,
		ProvideTransactionPublisher,
		ProvideFeedStream,
		ProvideLedger,
		ProvideCatalog,

		// Pipeline services
		ProvideInsightGenerator,
		ProvideOrchestrator,

		// Use cases
		ProvideIngestProcessor,
		ProvideIngestCollector,
		ProvideKafkaTxHandler,

		// Transport
		ProvideProfileHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
