package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/usecase"
)

type transactionServiceStub struct {
	registerFn func(ctx context.Context, input usecase.RegisterTransactionInput) (*domain.Transaction, error)
	getFn      func(ctx context.Context, id string) (*domain.Transaction, error)
}

func (s *transactionServiceStub) RegisterTransaction(ctx context.Context, input usecase.RegisterTransactionInput) (*domain.Transaction, error) {
	return s.registerFn(ctx, input)
}

func (s *transactionServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func sampleTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:          "5f0c3c52-2d0e-4c50-9a1b-0f3a8e7b6d21",
		Date:        time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(100),
		Type:        domain.TransactionTypeCredit,
		Description: "sale",
	}
}

func TestTransactionHandler_Register_Success(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	var captured usecase.RegisterTransactionInput
	h := NewTransactionHandler(&transactionServiceStub{
		registerFn: func(ctx context.Context, input usecase.RegisterTransactionInput) (*domain.Transaction, error) {
			captured = input
			return sampleTransaction(), nil
		},
	}, zerolog.Nop(), m)

	body := `{"date":"2024-05-10","amount":100,"type":"credit","description":"sale"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.Type != domain.TransactionTypeCredit || !captured.Amount.Equal(decimal.NewFromInt(100)) || captured.Description != "sale" {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.RegisterTransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TransactionID != sampleTransaction().ID {
		t.Fatalf("unexpected transaction id %q", resp.TransactionID)
	}

	if got := testutil.ToFloat64(m.TransactionsRegistered.WithLabelValues("credit")); got != 1 {
		t.Fatalf("expected registered counter 1, got %v", got)
	}
}

func TestTransactionHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		returnTx   bool
		wantStatus int
		wantStage  string
	}{
		{
			name:       "invalid json",
			body:       `{"amount":`,
			wantStatus: http.StatusBadRequest,
			wantStage:  "decode",
		},
		{
			name:       "unknown type",
			body:       `{"date":"2024-05-10","amount":1,"type":"refund"}`,
			wantStatus: http.StatusBadRequest,
			wantStage:  "validate",
		},
		{
			name:       "domain validation",
			body:       `{"date":"2024-05-10","amount":0,"type":"debit"}`,
			err:        domain.ErrInvalidAmount,
			wantStatus: http.StatusBadRequest,
			wantStage:  "validate",
		},
		{
			name:       "future date",
			body:       `{"date":"2999-01-01","amount":5,"type":"debit"}`,
			err:        domain.ErrFutureDate,
			wantStatus: http.StatusBadRequest,
			wantStage:  "validate",
		},
		{
			name:       "storage failure",
			body:       `{"date":"2024-05-10","amount":5,"type":"debit"}`,
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantStage:  "persist",
		},
		{
			name:       "buffer failure after persist",
			body:       `{"date":"2024-05-10","amount":5,"type":"debit"}`,
			err:        errors.New("buffer transaction event: redis down"),
			returnTx:   true,
			wantStatus: http.StatusInternalServerError,
			wantStage:  "buffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewWithRegistry(prometheus.NewRegistry())
			h := NewTransactionHandler(&transactionServiceStub{
				registerFn: func(ctx context.Context, input usecase.RegisterTransactionInput) (*domain.Transaction, error) {
					if tt.returnTx {
						return sampleTransaction(), tt.err
					}
					return nil, tt.err
				},
			}, zerolog.Nop(), m)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			h.Register(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if got := testutil.ToFloat64(m.RegistrationErrors.WithLabelValues(tt.wantStage)); got != 1 {
				t.Fatalf("expected %s error counted once, got %v", tt.wantStage, got)
			}
		})
	}
}

func getWithID(h *TransactionHandler, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Get(rec, req)

	return rec
}

func TestTransactionHandler_Get(t *testing.T) {
	h := NewTransactionHandler(&transactionServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			if id == sampleTransaction().ID {
				return sampleTransaction(), nil
			}
			return nil, domain.ErrTransactionNotFound
		},
	}, zerolog.Nop(), nil)

	rec := getWithID(h, sampleTransaction().ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Type != "credit" || resp.Description != "sale" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if rec := getWithID(h, "missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
