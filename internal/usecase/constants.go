package usecase

import "time"

const (
	// DefaultBatchKey is the buffer list the ledger appends registered events to.
	DefaultBatchKey = "fila_consolidacao_diaria"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
