package usecase

import (
	"context"
	"time"

	"github.com/iho/cashflow/internal/domain"
)

// BalanceUseCase serves daily balance queries.
type BalanceUseCase struct {
	balanceRepo DailyBalanceRepository
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(balanceRepo DailyBalanceRepository) *BalanceUseCase {
	return &BalanceUseCase{balanceRepo: balanceRepo}
}

// GetDailyBalance returns the consolidated balance for the day containing date.
func (uc *BalanceUseCase) GetDailyBalance(ctx context.Context, date time.Time) (*domain.DailyBalance, error) {
	return uc.balanceRepo.GetByDate(ctx, domain.TruncateToDay(date))
}
