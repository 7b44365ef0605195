package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/domain"
)

// TransactionUseCase handles transaction registration and lookup.
type TransactionUseCase struct {
	txRepo        TransactionRepository
	buffer        MessageBuffer
	bufferRetrier Retrier
	idGen         IDGenerator
	batchKey      string
	logger        zerolog.Logger
	now           func() time.Time
}

// TransactionUseCaseConfig wires the dependencies of TransactionUseCase.
type TransactionUseCaseConfig struct {
	TxRepo        TransactionRepository
	Buffer        MessageBuffer
	BufferRetrier Retrier // wraps the buffer append; nil means a single attempt
	IDGen         IDGenerator
	BatchKey      string
	Logger        zerolog.Logger
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(cfg TransactionUseCaseConfig) *TransactionUseCase {
	if cfg.BatchKey == "" {
		cfg.BatchKey = DefaultBatchKey
	}

	return &TransactionUseCase{
		txRepo:        cfg.TxRepo,
		buffer:        cfg.Buffer,
		bufferRetrier: cfg.BufferRetrier,
		idGen:         cfg.IDGen,
		batchKey:      cfg.BatchKey,
		logger:        cfg.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RegisterTransactionInput represents input for registering a transaction.
type RegisterTransactionInput struct {
	Date        time.Time
	Amount      decimal.Decimal
	Type        domain.TransactionType
	Description string
}

// RegisterTransaction validates and persists a transaction, then appends its
// event to the message buffer for the batch publisher.
//
// The transaction row and the buffer entry are written to different stores.
// If the append still fails after retries the transaction stays persisted and
// the error is returned so the caller can surface it.
func (uc *TransactionUseCase) RegisterTransaction(ctx context.Context, input RegisterTransactionInput) (*domain.Transaction, error) {
	now := uc.now()

	tx := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		Date:        input.Date.UTC(),
		Amount:      input.Amount,
		Type:        input.Type,
		Description: input.Description,
		CreatedAt:   now,
	}

	if err := tx.Validate(now); err != nil {
		return nil, err
	}

	if err := uc.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}

	event := tx.RegisteredEvent()
	appendEvent := func() error {
		return uc.buffer.Append(ctx, uc.batchKey, event)
	}

	var err error
	if uc.bufferRetrier != nil {
		err = uc.bufferRetrier.Retry(ctx, appendEvent)
	} else {
		err = appendEvent()
	}
	if err != nil {
		uc.logger.Error().
			Err(err).
			Str("transaction_id", tx.ID).
			Str("batch_key", uc.batchKey).
			Msg("transaction persisted but event could not be buffered")
		return tx, fmt.Errorf("buffer transaction event: %w", err)
	}

	uc.logger.Debug().
		Str("transaction_id", tx.ID).
		Str("type", tx.Type.String()).
		Str("amount", tx.Amount.String()).
		Msg("transaction registered")

	return tx, nil
}

// GetTransaction retrieves a transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txRepo.GetByID(ctx, id)
}
