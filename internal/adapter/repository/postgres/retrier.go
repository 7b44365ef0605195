package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/infrastructure/retry"
)

// PostgreSQL error codes for retryable errors.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	// Two consumers inserting the first row for the same day.
	pgErrUniqueViolation = "23505"
)

// RetrierConfig configures the database retry policy.
type RetrierConfig struct {
	// MaxRetries counts attempts after the first; zero disables retrying.
	MaxRetries int
	Step       time.Duration
	Logger     zerolog.Logger
	OnRetry    func(attempt int, err error)
}

// NewRetrier creates a retrier that waits Step × attempt between attempts and
// retries only conflicts and connection failures.
func NewRetrier(cfg RetrierConfig) *retry.Retrier {
	if cfg.Step == 0 {
		cfg.Step = 200 * time.Millisecond
	}

	return retry.New(retry.Config{
		Name:       "postgres",
		MaxRetries: cfg.MaxRetries,
		Schedule:   retry.Linear(cfg.Step),
		Retryable:  IsRetryableError,
		OnRetry:    cfg.OnRetry,
		Logger:     cfg.Logger,
	})
}

// IsRetryableError checks if a PostgreSQL error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure, pgErrUniqueViolation:
			return true
		}
		return false
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}
