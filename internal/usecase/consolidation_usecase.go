package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/domain"
)

// ProcessTransactionEventCommand asks for one transaction to be folded into
// the balance of its day.
type ProcessTransactionEventCommand struct {
	TransactionID string
	Date          time.Time
	Amount        decimal.Decimal
	Type          domain.TransactionType
}

// CommandFromEvent maps a received event onto a consolidation command.
func CommandFromEvent(e domain.TransactionRegisteredEvent) ProcessTransactionEventCommand {
	return ProcessTransactionEventCommand{
		TransactionID: e.TransactionID,
		Date:          e.TransactionDate,
		Amount:        e.Amount,
		Type:          e.Type,
	}
}

// ConsolidationUseCase accumulates transaction events into daily balances.
//
// Events are not deduplicated: handling the same command twice counts its
// amount twice.
type ConsolidationUseCase struct {
	balanceRepo DailyBalanceRepository
}

// NewConsolidationUseCase creates a new ConsolidationUseCase.
func NewConsolidationUseCase(balanceRepo DailyBalanceRepository) *ConsolidationUseCase {
	return &ConsolidationUseCase{balanceRepo: balanceRepo}
}

// Handle loads the balance for the command's day (or starts from zero),
// applies the amount and stores the result.
//
// ctx carries the per-delivery logger; see zerolog.Ctx.
func (uc *ConsolidationUseCase) Handle(ctx context.Context, cmd ProcessTransactionEventCommand) error {
	day := domain.TruncateToDay(cmd.Date)
	log := zerolog.Ctx(ctx).With().
		Str("transaction_id", cmd.TransactionID).
		Str("date", day.Format(time.DateOnly)).
		Logger()

	if !cmd.Type.IsValid() {
		return fmt.Errorf("transaction %s: %w", cmd.TransactionID, domain.ErrInvalidType)
	}

	balance, err := uc.balanceRepo.GetByDate(ctx, day)
	switch {
	case errors.Is(err, domain.ErrDailyBalanceNotFound):
		balance = domain.NewDailyBalance(day)
	case err != nil:
		return fmt.Errorf("load daily balance: %w", err)
	}

	balance.Apply(cmd.Type, cmd.Amount)

	if err := uc.balanceRepo.Upsert(ctx, balance); err != nil {
		return fmt.Errorf("upsert daily balance: %w", err)
	}

	log.Debug().
		Str("type", cmd.Type.String()).
		Str("amount", cmd.Amount.String()).
		Str("balance", balance.Balance.String()).
		Msg("transaction consolidated")

	return nil
}
