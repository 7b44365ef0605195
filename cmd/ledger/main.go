package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/cashflow/internal/adapter/http"
	"github.com/iho/cashflow/internal/adapter/http/handler"
	"github.com/iho/cashflow/internal/adapter/http/middleware"
	"github.com/iho/cashflow/internal/adapter/messaging/rabbitmq"
	postgresRepo "github.com/iho/cashflow/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cashflow/internal/adapter/repository/redis"
	"github.com/iho/cashflow/internal/infrastructure/config"
	"github.com/iho/cashflow/internal/infrastructure/eventpublisher"
	"github.com/iho/cashflow/internal/infrastructure/logger"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/infrastructure/postgres"
	"github.com/iho/cashflow/internal/infrastructure/redis"
	"github.com/iho/cashflow/internal/usecase"
)

// limiterIdle is how long a client's rate limiter survives without requests.
const limiterIdle = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "ledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("ledger service stopped with error")
		os.Exit(1)
	}

	appLogger.Info().Msg("ledger service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to postgres")

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient, err := redis.NewClient(ctx, redis.ClientConfig{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txRepo := postgresRepo.NewTransactionRepository(pool)
	buffer := redisRepo.NewMessageBuffer(redisClient).WithMetrics(m)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	bufferRetrier := redisRepo.NewBufferRetrier(redisRepo.BufferRetrierConfig{
		MaxRetries: cfg.BufferMaxRetries,
		Base:       cfg.BufferBackoffBase,
		Logger:     logger,
		OnRetry: func(int, error) {
			m.BufferAppends.WithLabelValues("retry").Inc()
		},
	})

	txUC := usecase.NewTransactionUseCase(usecase.TransactionUseCaseConfig{
		TxRepo:        txRepo,
		Buffer:        buffer,
		BufferRetrier: bufferRetrier,
		IDGen:         postgresRepo.NewUUIDGenerator(),
		BatchKey:      cfg.BatchKey,
		Logger:        logger,
	})

	// Broker
	sink, brokerChecks, closeSink, err := newBatchSink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	batchPublisher := eventpublisher.NewBatchPublisher(eventpublisher.Config{
		Buffer:    buffer,
		Publisher: sink,
		Logger:    logger,
		Metrics:   m,
		BatchKey:  cfg.BatchKey,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.BatchInterval,
	})

	// HTTP
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(txUC, logger, m),
		HealthHandler: handler.NewHealthHandler(append([]handler.Check{
			{Name: "postgres", Ping: pool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		}, brokerChecks...)...),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          m,
		Logger:           logger,
	})
	server := newHTTPServer(cfg, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := batchPublisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("batch publisher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := rateLimiter.CleanupLimiters(limiterIdle); n > 0 {
					logger.Debug().Int("removed", n).Msg("rate limiters cleaned up")
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Broker modes accepted in BROKER_MODE.
const (
	brokerModeRabbitMQ = "rabbitmq"
	brokerModeLog      = "log"
)

// newBatchSink returns the publisher drained batches go to, the readiness
// checks it adds and a function releasing it.
func newBatchSink(cfg *config.Config, logger zerolog.Logger) (eventpublisher.Publisher, []handler.Check, func(), error) {
	switch cfg.BrokerMode {
	case brokerModeRabbitMQ, "":
		p := rabbitmq.NewPublisher(rabbitmq.PublisherConfig{
			Connect:  rabbitmq.Connector(brokerConfig(cfg, "cashflow-ledger", logger)),
			Topology: topology(cfg),
			Logger:   logger,
		})
		checks := []handler.Check{{Name: "rabbitmq", Ping: p.Ping}}
		return p, checks, func() { _ = p.Close() }, nil
	case brokerModeLog:
		logger.Warn().Msg("broker disabled, batches are only logged")
		return eventpublisher.NewLogPublisher(logger), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown broker mode %q", cfg.BrokerMode)
	}
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

func brokerConfig(cfg *config.Config, name string, logger zerolog.Logger) rabbitmq.ConnectionConfig {
	return rabbitmq.ConnectionConfig{
		URL:            cfg.RabbitMQURL,
		Host:           cfg.RabbitMQHost,
		Port:           cfg.RabbitMQPort,
		User:           cfg.RabbitMQUser,
		Password:       cfg.RabbitMQPassword,
		VHost:          cfg.RabbitMQVHost,
		ConfirmPublish: true,
		ConnectionName: name,
		Logger:         logger,
	}
}

func topology(cfg *config.Config) rabbitmq.Topology {
	return rabbitmq.Topology{
		Exchange:   cfg.ExchangeName,
		Queue:      cfg.QueueName,
		RoutingKey: cfg.RoutingKey,
	}
}
