package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RegisterTransactionResponse is returned after a transaction is accepted.
type RegisterTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(tx *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:          tx.ID,
		Date:        tx.Date,
		Amount:      tx.Amount,
		Type:        tx.Type.String(),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}

// DailyBalanceResponse represents the consolidated balance of one day.
type DailyBalanceResponse struct {
	Date        string          `json:"date"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	Balance     decimal.Decimal `json:"balance"`
}

// DailyBalanceFromDomain converts a domain daily balance to response.
func DailyBalanceFromDomain(b *domain.DailyBalance) *DailyBalanceResponse {
	return &DailyBalanceResponse{
		Date:        b.Date.Format(DateLayout),
		TotalCredit: b.TotalCredit,
		TotalDebit:  b.TotalDebit,
		Balance:     b.Balance,
	}
}
