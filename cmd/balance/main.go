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
	"github.com/iho/cashflow/internal/adapter/messaging/rabbitmq"
	postgresRepo "github.com/iho/cashflow/internal/adapter/repository/postgres"
	"github.com/iho/cashflow/internal/infrastructure/config"
	"github.com/iho/cashflow/internal/infrastructure/logger"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/infrastructure/postgres"
	"github.com/iho/cashflow/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "balance",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("balance service stopped with error")
		os.Exit(1)
	}

	appLogger.Info().Msg("balance service stopped")
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

	m := metrics.New()

	retrier := postgresRepo.NewRetrier(postgresRepo.RetrierConfig{
		MaxRetries: cfg.UpsertMaxRetries,
		Step:       cfg.UpsertBackoffStep,
		Logger:     logger,
		OnRetry:    func(int, error) { m.UpsertRetries.Inc() },
	})
	balanceRepo := postgresRepo.NewDailyBalanceRepository(pool, retrier,
		postgresRepo.WithUpsertObserver(func(d time.Duration) {
			m.UpsertDuration.Observe(d.Seconds())
		}),
	)

	consolidationUC := usecase.NewConsolidationUseCase(balanceRepo)
	balanceUC := usecase.NewBalanceUseCase(balanceRepo)

	consumer := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		Connect:          rabbitmq.Connector(brokerConfig(cfg, logger)),
		Handler:          consolidationUC,
		Topology:         topology(cfg),
		Prefetch:         cfg.PrefetchCount,
		DrainGrace:       cfg.ConsumerDrainGrace,
		ReconnectMaxWait: cfg.ReconnectMaxWait,
		Logger:           logger,
		Metrics:          m,
	})

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		BalanceHandler: handler.NewBalanceHandler(balanceUC),
		HealthHandler: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Ping: pool.Ping},
			handler.Check{Name: "rabbitmq", Ping: consumerReady(consumer)},
		),
		Metrics: m,
		Logger:  logger,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(ctx)
	})

	g.Go(func() error {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
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

type stateReporter interface {
	State() rabbitmq.State
}

// consumerReady reports ready only while deliveries are flowing.
func consumerReady(c stateReporter) func(context.Context) error {
	return func(context.Context) error {
		if s := c.State(); s != rabbitmq.StateConsuming {
			return fmt.Errorf("consumer is %s", s)
		}
		return nil
	}
}

func brokerConfig(cfg *config.Config, logger zerolog.Logger) rabbitmq.ConnectionConfig {
	return rabbitmq.ConnectionConfig{
		URL:            cfg.RabbitMQURL,
		Host:           cfg.RabbitMQHost,
		Port:           cfg.RabbitMQPort,
		User:           cfg.RabbitMQUser,
		Password:       cfg.RabbitMQPassword,
		VHost:          cfg.RabbitMQVHost,
		ConnectionName: "cashflow-balance",
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
