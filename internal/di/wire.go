//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StudentDrop/internal/domain/repository"
	"StudentDrop/internal/domain/service"
	"StudentDrop/internal/handler/api"
	"StudentDrop/internal/usecase"
	"StudentDrop/pkg/config"
	xhttp "StudentDrop/pkg/http"
	"StudentDrop/pkg/metrics"
	"StudentDrop/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories
		ProvideEventPublisher,
		ProvidePredictionCache,
		ProvideAuditStore,

		// Use cases
		ProvideScorer,
		ProvideRiskPredictor,
		ProvideModelTrainer,
		wire.Bind(new(service.Trainer), new(*usecase.ModelTrainer)),
		usecase.NewStatusReporter,
		ProvideAuditReport,
		ProvideAuditRecorder,

		// HTTP
		ProvideRateLimiter,
		ProvideMLHandler,
		wire.Bind(new(xhttp.Handler), new(*api.MLHandler)),
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
