package domain

import "errors"

var (
	// Transaction errors
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidType         = errors.New("transaction type must be credit or debit")
	ErrMissingDate         = errors.New("transaction date is required")
	ErrFutureDate          = errors.New("transaction date cannot be in the future")
	ErrDescriptionTooLong  = errors.New("description exceeds maximum length")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Daily balance errors
	ErrDailyBalanceNotFound = errors.New("daily balance not found")

	// Messaging errors
	ErrMalformedEnvelope = errors.New("malformed batch envelope")
	ErrMalformedEvent    = errors.New("malformed transaction event")
)
