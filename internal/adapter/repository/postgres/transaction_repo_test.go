package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashflow/internal/domain"
)

const testTxID = "6f1c2f0e-8a8e-4a8f-9a57-0d6a1c2b9e11"

var transactionColumns = []string{"id", "date", "amount", "type", "description", "created_at"}

func TestTransactionRepository_Create(t *testing.T) {
	mockPool := newMockPool(t)
	repo := newTransactionRepository(mockPool)

	when := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	tx := &domain.Transaction{
		ID:          testTxID,
		Date:        when,
		Amount:      decimal.RequireFromString("100.50"),
		Type:        domain.TransactionTypeCredit,
		Description: "sale",
		CreatedAt:   when,
	}

	pgID, err := stringToPgUUID(testTxID)
	require.NoError(t, err)

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WithArgs(pgID, timeToPgTimestamptz(when), pgxmock.AnyArg(), int16(0), "sale", timeToPgTimestamptz(when)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), tx))
	assertExpectations(t, mockPool)
}

func TestTransactionRepository_CreateRejectsInvalidID(t *testing.T) {
	mockPool := newMockPool(t)
	repo := newTransactionRepository(mockPool)

	err := repo.Create(context.Background(), &domain.Transaction{ID: "not-a-uuid"})
	assert.Error(t, err)
	assertExpectations(t, mockPool)
}

func TestTransactionRepository_GetByID(t *testing.T) {
	query := regexp.QuoteMeta("FROM transactions WHERE id = $1")
	when := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	pgID, err := stringToPgUUID(testTxID)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := newTransactionRepository(mockPool)

		rows := mockPool.NewRows(transactionColumns).
			AddRow(pgID, timeToPgTimestamptz(when), decimalToNumeric(decimal.RequireFromString("30.25")), int16(1), "rent", timeToPgTimestamptz(when))
		mockPool.ExpectQuery(query).WithArgs(pgID).WillReturnRows(rows)

		got, err := repo.GetByID(context.Background(), testTxID)
		require.NoError(t, err)
		assert.Equal(t, testTxID, got.ID)
		assert.Equal(t, domain.TransactionTypeDebit, got.Type)
		assert.Equal(t, "30.25", got.Amount.String())
		assert.Equal(t, "rent", got.Description)
		assertExpectations(t, mockPool)
	})

	t.Run("not found", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := newTransactionRepository(mockPool)

		mockPool.ExpectQuery(query).WithArgs(pgID).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), testTxID)
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := newTransactionRepository(mockPool)

		_, err := repo.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("database error surfaces", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := newTransactionRepository(mockPool)
		dbErr := errors.New("connection refused")

		mockPool.ExpectQuery(query).WithArgs(pgID).WillReturnError(dbErr)

		_, err := repo.GetByID(context.Background(), testTxID)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "100.5", "1234567.89", "0.01"} {
		n := decimalToNumeric(decimal.RequireFromString(s))
		assert.True(t, n.Valid)
		assert.True(t, numericToDecimal(n).Equal(decimal.RequireFromString(s)), s)
	}

	assert.True(t, numericToDecimal(pgtype.Numeric{}).IsZero())
}
