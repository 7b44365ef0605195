package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/domain"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	GetDailyBalance(ctx context.Context, date time.Time) (*domain.DailyBalance, error)
}

// BalanceHandler serves consolidated daily balances.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// GetDaily returns the balance for the YYYY-MM-DD date in the path.
func (h *BalanceHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")

	date, err := time.Parse(dto.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", "expected YYYY-MM-DD")
		return
	}

	balance, err := h.balanceUC.GetDailyBalance(r.Context(), date)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get daily balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DailyBalanceFromDomain(balance))
}
