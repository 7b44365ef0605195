package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	RegisterTransaction(ctx context.Context, input usecase.RegisterTransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	txUC    TransactionService
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewTransactionHandler creates a new TransactionHandler. m may be nil.
func NewTransactionHandler(txUC TransactionService, logger zerolog.Logger, m *metrics.Metrics) *TransactionHandler {
	return &TransactionHandler{txUC: txUC, logger: logger, metrics: m}
}

// Register validates, persists and buffers a transaction.
func (h *TransactionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterTransactionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.countError("decode")
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		h.countError("validate")
		writeError(w, http.StatusBadRequest, "invalid transaction", err.Error())
		return
	}

	tx, err := h.txUC.RegisterTransaction(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		if status == http.StatusBadRequest {
			h.countError("validate")
			writeError(w, status, "invalid transaction", err.Error())
			return
		}

		event := h.logger.Error().Err(err)
		if tx != nil {
			// Persisted but not buffered; it will be missing from the daily balance.
			h.countError("buffer")
			event = event.Str("transaction_id", tx.ID)
		} else {
			h.countError("persist")
		}
		event.Msg("transaction registration failed")
		writeError(w, status, "failed to register transaction", err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.TransactionsRegistered.WithLabelValues(tx.Type.String()).Inc()
		h.metrics.TransactionAmount.Observe(tx.Amount.InexactFloat64())
	}

	writeJSON(w, http.StatusCreated, dto.RegisterTransactionResponse{TransactionID: tx.ID})
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	tx, err := h.txUC.GetTransaction(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(tx))
}

func (h *TransactionHandler) countError(stage string) {
	if h.metrics != nil {
		h.metrics.RegistrationErrors.WithLabelValues(stage).Inc()
	}
}
