package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/adapter/http/handler"
	"github.com/iho/cashflow/internal/adapter/http/middleware"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/usecase"
)

// RouterConfig holds dependencies for the router. Nil handlers leave their
// routes unmounted, so each service mounts only its own API.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	BalanceHandler     *handler.BalanceHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	IdempotencyTTL     time.Duration
	// RateLimiter throttles transaction registration per client.
	RateLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics; defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Liveness)
		r.Get("/ready", cfg.HealthHandler.Readiness)
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TransactionHandler != nil {
			r.Route("/transactions", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					if cfg.RateLimiter != nil {
						r.Use(cfg.RateLimiter.Limit)
					}
					if cfg.IdempotencyStore != nil {
						r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
					}
					r.Post("/", cfg.TransactionHandler.Register)
				})
				r.Get("/{id}", cfg.TransactionHandler.Get)
			})
		}

		if cfg.BalanceHandler != nil {
			r.Get("/daily-balances/{date}", cfg.BalanceHandler.GetDaily)
		}
	})

	return r
}
