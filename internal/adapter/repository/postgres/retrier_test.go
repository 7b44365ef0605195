package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestRetrierRetriesOnRetryableError(t *testing.T) {
	r := NewRetrier(RetrierConfig{MaxRetries: 2, Step: time.Millisecond, Logger: zerolog.Nop()})

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: pgErrDeadlock}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetrierGivesUpAfterMaxRetries(t *testing.T) {
	var retries []int
	r := NewRetrier(RetrierConfig{
		MaxRetries: 3,
		Step:       time.Millisecond,
		Logger:     zerolog.Nop(),
		OnRetry:    func(attempt int, _ error) { retries = append(retries, attempt) },
	})

	attempts := 0
	conflict := &pgconn.PgError{Code: pgErrUniqueViolation}
	err := r.Retry(context.Background(), func() error {
		attempts++
		return conflict
	})

	if !errors.Is(err, conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d", attempts)
	}
	if len(retries) != 3 {
		t.Fatalf("expected 3 retry notifications, got %v", retries)
	}
}

func TestRetrierZeroMaxRetriesMakesOneAttempt(t *testing.T) {
	r := NewRetrier(RetrierConfig{MaxRetries: 0, Step: time.Millisecond, Logger: zerolog.Nop()})

	attempts := 0
	conflict := &pgconn.PgError{Code: pgErrSerializationFailure}
	err := r.Retry(context.Background(), func() error {
		attempts++
		return conflict
	})

	if !errors.Is(err, conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected retries disabled, got %d attempts", attempts)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := NewRetrier(RetrierConfig{Step: time.Millisecond, Logger: zerolog.Nop()})
	attempts := 0
	permanentErr := errors.New("permanent")

	err := r.Retry(context.Background(), func() error {
		attempts++
		return permanentErr
	})

	if !errors.Is(err, permanentErr) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock", &pgconn.PgError{Code: pgErrDeadlock}, true},
		{"serialization failure", &pgconn.PgError{Code: pgErrSerializationFailure}, true},
		{"unique violation", &pgconn.PgError{Code: pgErrUniqueViolation}, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"generic", errors.New("other"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Fatalf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
