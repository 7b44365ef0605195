package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/domain"
)

// maxBodyBytes caps request bodies; a transaction is a few hundred bytes.
const maxBodyBytes = 64 << 10

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDailyBalanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingDate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFutureDate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDescriptionTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
