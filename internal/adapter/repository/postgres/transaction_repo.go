package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/postgres/generated"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Create persists a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	id, err := stringToPgUUID(tx.ID)
	if err != nil {
		return err
	}

	return r.queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:          id,
		Date:        timeToPgTimestamptz(tx.Date),
		Amount:      decimalToNumeric(tx.Amount),
		Type:        int16(tx.Type),
		Description: tx.Description,
		CreatedAt:   timeToPgTimestamptz(tx.CreatedAt),
	})
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	pgID, err := stringToPgUUID(id)
	if err != nil {
		return nil, domain.ErrTransactionNotFound
	}

	row, err := r.queries.GetTransactionByID(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row), nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:          pgUUIDToString(row.ID),
		Date:        row.Date.Time,
		Amount:      numericToDecimal(row.Amount),
		Type:        domain.TransactionType(row.Type),
		Description: row.Description,
		CreatedAt:   row.CreatedAt.Time,
	}
}
