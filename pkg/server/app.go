package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StudentDrop/internal/domain/repository"
	"StudentDrop/internal/usecase"
	pkgch "StudentDrop/pkg/clickhouse"
	"StudentDrop/pkg/config"
	xhttp "StudentDrop/pkg/http"
	pkgkafka "StudentDrop/pkg/kafka"
	"StudentDrop/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *logger.Logger
	httpServer *xhttp.Server
	producer   *pkgkafka.Producer
	consumer   *pkgkafka.Consumer
	recorder   *usecase.AuditRecorder
	cache      repository.PredictionCache
	chClient   *pkgch.Client
}

// Option attaches an optional component to the App.
type Option func(*App)

func WithHTTPServer(s *xhttp.Server) Option {
	return func(a *App) { a.httpServer = s }
}

func WithProducer(p *pkgkafka.Producer) Option {
	return func(a *App) { a.producer = p }
}

// WithAuditConsumer runs consumer with recorder registered as its handler.
func WithAuditConsumer(c *pkgkafka.Consumer, r *usecase.AuditRecorder) Option {
	return func(a *App) {
		a.consumer = c
		a.recorder = r
	}
}

func WithCache(c repository.PredictionCache) Option {
	return func(a *App) { a.cache = c }
}

func WithClickHouse(ch *pkgch.Client) Option {
	return func(a *App) { a.chClient = ch }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *logger.Logger, opts ...Option) *App {
	a := &App{cfg: cfg, l: l}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done or the
// HTTP server fails, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	if a.httpServer == nil {
		return fmt.Errorf("http server is not configured")
	}

	if a.consumer != nil {
		a.consumer.RegisterHandler(a.recorder)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.recorder.Start()
		a.l.Info("audit consumer started", logger.String("topic", a.recorder.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.shutdown()
		return err
	}
	a.l.Info("service started",
		logger.String("env", a.cfg.Environment),
		logger.Bool("kafka", a.producer != nil),
		logger.Bool("cache", a.cache != nil),
		logger.Bool("clickhouse", a.chClient != nil))

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		a.l.Error("http server error", logger.Error(err))
		runErr = err
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops components in dependency order: HTTP first so no new
// events are produced, then the consumer and its buffered audit rows,
// then the producer, cache and ClickHouse.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", logger.Error(err))
		keep(err)
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", logger.Error(err))
			keep(err)
		}
		a.recorder.Close()
	}

	// flush aggregated logs while the producer is still open
	a.l.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", logger.Error(err))
			keep(err)
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", logger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", logger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return firstErr
}
