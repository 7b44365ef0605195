package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBalance is the consolidated cash position for one calendar day.
type DailyBalance struct {
	Date        time.Time
	TotalCredit decimal.Decimal
	TotalDebit  decimal.Decimal
	Balance     decimal.Decimal
}

// NewDailyBalance returns an empty aggregate for the day containing date.
func NewDailyBalance(date time.Time) *DailyBalance {
	return &DailyBalance{
		Date:        TruncateToDay(date),
		TotalCredit: decimal.Zero,
		TotalDebit:  decimal.Zero,
		Balance:     decimal.Zero,
	}
}

// Apply accumulates amount on the side given by typ and recomputes Balance.
func (b *DailyBalance) Apply(typ TransactionType, amount decimal.Decimal) {
	if typ == TransactionTypeCredit {
		b.TotalCredit = b.TotalCredit.Add(amount)
	} else {
		b.TotalDebit = b.TotalDebit.Add(amount)
	}

	b.Balance = b.TotalCredit.Sub(b.TotalDebit)
}
