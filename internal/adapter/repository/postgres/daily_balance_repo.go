package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/postgres/generated"
	"github.com/iho/cashflow/internal/usecase"
)

// DailyBalanceRepository implements usecase.DailyBalanceRepository.
type DailyBalanceRepository struct {
	queries   *generated.Queries
	txManager *TxManager
	retrier   usecase.Retrier
	observe   func(time.Duration)
	now       func() time.Time
}

// DailyBalanceRepositoryOption customises a DailyBalanceRepository.
type DailyBalanceRepositoryOption func(*DailyBalanceRepository)

// WithUpsertObserver records the duration of every Upsert call, retries included.
func WithUpsertObserver(observe func(time.Duration)) DailyBalanceRepositoryOption {
	return func(r *DailyBalanceRepository) {
		r.observe = observe
	}
}

// NewDailyBalanceRepository creates a new DailyBalanceRepository. retrier
// wraps every Upsert; see NewRetrier for the default policy.
func NewDailyBalanceRepository(pool *pgxpool.Pool, retrier usecase.Retrier, opts ...DailyBalanceRepositoryOption) *DailyBalanceRepository {
	return newDailyBalanceRepository(pool, retrier, opts...)
}

func newDailyBalanceRepository(pool pgxPool, retrier usecase.Retrier, opts ...DailyBalanceRepositoryOption) *DailyBalanceRepository {
	r := &DailyBalanceRepository{
		queries:   generated.New(pool),
		txManager: newTxManager(pool),
		retrier:   retrier,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// GetByDate returns the balance for the given day or domain.ErrDailyBalanceNotFound.
func (r *DailyBalanceRepository) GetByDate(ctx context.Context, date time.Time) (*domain.DailyBalance, error) {
	row, err := r.queries.GetDailyBalanceByDate(ctx, dayToPgDate(date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDailyBalanceNotFound
		}

		return nil, err
	}

	return rowToDailyBalance(row), nil
}

// Upsert writes balance for its day. Every attempt re-reads the row inside a
// transaction, inserts it when absent and otherwise overwrites all totals.
// Conflicts and connection errors are retried; the last error is returned
// once retries run out.
func (r *DailyBalanceRepository) Upsert(ctx context.Context, balance *domain.DailyBalance) error {
	if r.observe != nil {
		start := time.Now()
		defer func() { r.observe(time.Since(start)) }()
	}

	attempt := func() error {
		return r.upsertOnce(ctx, balance)
	}

	if r.retrier == nil {
		return attempt()
	}

	return r.retrier.Retry(ctx, attempt)
}

func (r *DailyBalanceRepository) upsertOnce(ctx context.Context, balance *domain.DailyBalance) error {
	date := dayToPgDate(balance.Date)
	updatedAt := timeToPgTimestamptz(r.now())

	return r.txManager.WithinTx(ctx, func(tx pgx.Tx) error {
		q := r.queries.WithTx(tx)

		_, err := q.GetDailyBalanceByDateForUpdate(ctx, date)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if err := q.InsertDailyBalance(ctx, generated.InsertDailyBalanceParams{
				Date:        date,
				TotalCredit: decimalToNumeric(balance.TotalCredit),
				TotalDebit:  decimalToNumeric(balance.TotalDebit),
				Balance:     decimalToNumeric(balance.Balance),
				UpdatedAt:   updatedAt,
			}); err != nil {
				return fmt.Errorf("insert daily balance: %w", err)
			}
		case err != nil:
			return fmt.Errorf("read daily balance: %w", err)
		default:
			if err := q.UpdateDailyBalance(ctx, generated.UpdateDailyBalanceParams{
				Date:        date,
				TotalCredit: decimalToNumeric(balance.TotalCredit),
				TotalDebit:  decimalToNumeric(balance.TotalDebit),
				Balance:     decimalToNumeric(balance.Balance),
				UpdatedAt:   updatedAt,
			}); err != nil {
				return fmt.Errorf("update daily balance: %w", err)
			}
		}

		return nil
	})
}

func rowToDailyBalance(row generated.DailyBalance) *domain.DailyBalance {
	return &domain.DailyBalance{
		Date:        row.Date.Time,
		TotalCredit: numericToDecimal(row.TotalCredit),
		TotalDebit:  numericToDecimal(row.TotalDebit),
		Balance:     numericToDecimal(row.Balance),
	}
}
