package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/usecase"
)

// DateLayout is the calendar-day format used in paths and responses.
const DateLayout = "2006-01-02"

// RegisterTransactionRequest represents a request to register a transaction.
// Type accepts "credit"/"debit" or the numeric codes 0/1. Date accepts RFC 3339
// or a bare YYYY-MM-DD.
type RegisterTransactionRequest struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        json.RawMessage `json:"type"`
	Description string          `json:"description"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterTransactionRequest) ToUseCaseInput() (usecase.RegisterTransactionInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.RegisterTransactionInput{}, err
	}

	typ, err := parseType(r.Type)
	if err != nil {
		return usecase.RegisterTransactionInput{}, err
	}

	return usecase.RegisterTransactionInput{
		Date:        date,
		Amount:      r.Amount,
		Type:        typ,
		Description: r.Description,
	}, nil
}

// ParseDate reads a transaction date. An empty string yields the zero time,
// which registration rejects as missing.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or %s", s, DateLayout)
	}

	return t, nil
}

func parseType(raw json.RawMessage) (domain.TransactionType, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, domain.ErrInvalidType
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, domain.ErrInvalidType
		}
	} else {
		s = string(raw)
	}

	return domain.ParseTransactionType(s)
}
