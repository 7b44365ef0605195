package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// MaxDescriptionLength bounds the free-text description of a transaction.
	MaxDescriptionLength = 200
	// AmountScale is the number of decimal places amounts are stored with.
	AmountScale = 2
)

// TransactionType distinguishes money coming in from money going out.
// The numeric values are part of the wire format.
type TransactionType int

const (
	TransactionTypeCredit TransactionType = 0
	TransactionTypeDebit  TransactionType = 1
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeCredit:
		return "credit"
	case TransactionTypeDebit:
		return "debit"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseTransactionType accepts "credit"/"debit" (any case) or "0"/"1".
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "0":
		return TransactionTypeCredit, nil
	case "debit", "1":
		return TransactionTypeDebit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Transaction is a single cash movement recorded by the ledger.
// It is immutable once registered.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Type        TransactionType
	Description string
	CreatedAt   time.Time
}

// Validate checks the transaction against registration rules. now is the
// reference instant used for the future-date check.
func (t *Transaction) Validate(now time.Time) error {
	if t.Date.IsZero() {
		return ErrMissingDate
	}

	if TruncateToDay(t.Date).After(TruncateToDay(now)) {
		return ErrFutureDate
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !t.Amount.Equal(t.Amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	}

	if !t.Type.IsValid() {
		return ErrInvalidType
	}

	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: %d characters allowed", ErrDescriptionTooLong, MaxDescriptionLength)
	}

	return nil
}

// RegisteredEvent derives the event published for this transaction.
func (t *Transaction) RegisteredEvent() TransactionRegisteredEvent {
	return TransactionRegisteredEvent{
		TransactionID:   t.ID,
		TransactionDate: t.Date,
		Amount:          t.Amount,
		Type:            t.Type,
	}
}

// TruncateToDay returns midnight UTC of the UTC calendar day containing t.
// Every component agrees on UTC days, whatever offset t was written with.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
