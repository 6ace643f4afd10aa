package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"StudentDrop/internal/domain/repository"
	"StudentDrop/internal/domain/service"
	"StudentDrop/internal/handler/api"
	internalrepo "StudentDrop/internal/repository"
	"StudentDrop/internal/services/scoring"
	"StudentDrop/internal/usecase"
	"StudentDrop/pkg/cache"
	pkgch "StudentDrop/pkg/clickhouse"
	"StudentDrop/pkg/config"
	xhttp "StudentDrop/pkg/http"
	"StudentDrop/pkg/http/middleware"
	pkgkafka "StudentDrop/pkg/kafka"
	"StudentDrop/pkg/logger"
	"StudentDrop/pkg/metrics"
	"StudentDrop/pkg/server"
)

// Optional components are returned as nil when disabled in config.
// Interface-typed providers return an untyped nil so callers can compare
// against nil.

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default
// registry, which /metrics serves.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideScorer returns the LCG risk scorer.
func ProvideScorer() service.RiskScorer {
	return scoring.NewLCGScorer()
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async, func(topic string, err error) {
			// Warn, not Error: Error would feed the collector and loop
			l.Warn("kafka async delivery failed", logger.String("topic", topic), logger.Error(err))
		}),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes ML events when Kafka is enabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvidePredictionCache builds L1 memory, optionally layered over Redis.
func ProvidePredictionCache(cfg *config.Config) (repository.PredictionCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
	)
	var svc cache.Service = mem
	if cfg.Cache.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisTimeouts(cfg.Cache.Redis.DialTimeout, cfg.Cache.Redis.Timeout),
		)
		if err != nil {
			_ = mem.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = cache.NewLayeredCache(mem, rc)
	}
	return internalrepo.NewCachedPredictions(svc, cfg.Cache.TTL), nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout+time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAuditStore creates the audit table and returns the store.
func ProvideAuditStore(ch *pkgch.Client, l *logger.Logger) (repository.AuditStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseAuditStore(ch, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideAuditReport exposes audit summaries when a store exists.
func ProvideAuditReport(store repository.AuditStore) *usecase.AuditReport {
	if store == nil {
		return nil
	}
	return usecase.NewAuditReport(store)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAuditRecorder builds the consumer-side handler that fills the
// audit store.
func ProvideAuditRecorder(cfg *config.Config, consumer *pkgkafka.Consumer, store repository.AuditStore, m repository.Metrics, l *logger.Logger) *usecase.AuditRecorder {
	if consumer == nil || store == nil {
		return nil
	}
	return usecase.NewAuditRecorder(cfg.Kafka.Topic, store, m, l, cfg.Kafka.Consumer.BufferSize, time.Second)
}

// ProvideRiskPredictor creates the predict use case.
func ProvideRiskPredictor(
	scorer service.RiskScorer,
	m repository.Metrics,
	l *logger.Logger,
	c repository.PredictionCache,
	events repository.EventPublisher,
) *usecase.RiskPredictor {
	var opts []usecase.PredictorOption
	if c != nil {
		opts = append(opts, usecase.WithPredictionCache(c))
	}
	if events != nil {
		opts = append(opts, usecase.WithPredictionEvents(events))
	}
	return usecase.NewRiskPredictor(scorer, m, l, opts...)
}

// ProvideModelTrainer creates the simulated trainer.
func ProvideModelTrainer(cfg *config.Config, events repository.EventPublisher, m repository.Metrics, l *logger.Logger) *usecase.ModelTrainer {
	return usecase.NewModelTrainer(cfg.ML.TrainDelay, events, m, l)
}

// ProvideRateLimiter returns a limiter when rate limiting is enabled.
func ProvideRateLimiter(cfg *config.Config) *middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return middleware.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideMLHandler creates the HTTP handler.
func ProvideMLHandler(
	l *logger.Logger,
	predictor *usecase.RiskPredictor,
	trainer service.Trainer,
	status *usecase.StatusReporter,
	limiter *middleware.Limiter,
	report *usecase.AuditReport,
) *api.MLHandler {
	var opts []api.MLHandlerOption
	if limiter != nil {
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	if report != nil {
		opts = append(opts, api.WithAuditReport(report))
	}
	return api.NewMLHandler(l, predictor, trainer, status, opts...)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	)
}

// ProvideApp creates the application server. When a log topic is set the
// logger starts shipping aggregated errors through the producer.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	recorder *usecase.AuditRecorder,
	c repository.PredictionCache,
	ch *pkgch.Client,
) *server.App {
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&logger.CollectionConfig{
			Topic:     cfg.Kafka.LogTopic,
			Publisher: producer,
		})
	}

	opts := []server.Option{server.WithHTTPServer(httpServer)}
	if producer != nil {
		opts = append(opts, server.WithProducer(producer))
	}
	if consumer != nil && recorder != nil {
		opts = append(opts, server.WithAuditConsumer(consumer, recorder))
	}
	if c != nil {
		opts = append(opts, server.WithCache(c))
	}
	if ch != nil {
		opts = append(opts, server.WithClickHouse(ch))
	}
	return server.New(cfg, l, opts...)
}
