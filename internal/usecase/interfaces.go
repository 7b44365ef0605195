package usecase

import (
	"context"
	"time"

	"github.com/iho/cashflow/internal/domain"
)

// TransactionRepository defines data access for registered transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
}

// DailyBalanceRepository defines data access for the per-day aggregate.
type DailyBalanceRepository interface {
	// GetByDate returns domain.ErrDailyBalanceNotFound when no row exists for the day.
	GetByDate(ctx context.Context, date time.Time) (*domain.DailyBalance, error)
	// Upsert inserts the aggregate if the day is absent, otherwise overwrites every field.
	Upsert(ctx context.Context, balance *domain.DailyBalance) error
}

// MessageBuffer is an append-only ordered list of serialized events keyed by name.
type MessageBuffer interface {
	Append(ctx context.Context, key string, event domain.TransactionRegisteredEvent) error
	Len(ctx context.Context, key string) (int64, error)
	// Range returns up to n entries from the head without removing them.
	Range(ctx context.Context, key string, n int64) ([]string, error)
	// Trim removes the first n entries.
	Trim(ctx context.Context, key string, n int64) error
}

// Retrier handles retry logic for transient failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}
