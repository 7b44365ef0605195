// Package retry wraps cenkalti/backoff with an explicit attempt schedule and
// a retryable-error predicate.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Schedule returns the wait before the given retry (1-based).
type Schedule func(attempt int) time.Duration

// Linear waits step × attempt: 200ms, 400ms, 600ms for a 200ms step.
func Linear(step time.Duration) Schedule {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Exponential waits base × 2^(attempt-1), capped at max when max > 0.
func Exponential(base, max time.Duration) Schedule {
	return func(attempt int) time.Duration {
		d := base << (attempt - 1)
		if max > 0 && (d > max || d <= 0) {
			return max
		}
		return d
	}
}

// Config configures a Retrier.
type Config struct {
	Name       string
	MaxRetries int
	Schedule   Schedule
	// Retryable reports whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
	// OnRetry runs before each wait, e.g. to count retries.
	OnRetry func(attempt int, err error)
	Logger  zerolog.Logger
}

// Retrier runs an operation until it succeeds, fails permanently or the
// retry budget is spent. The last error is returned as-is.
type Retrier struct {
	name       string
	maxRetries int
	schedule   Schedule
	retryable  func(error) bool
	onRetry    func(attempt int, err error)
	logger     zerolog.Logger
}

// New creates a Retrier.
func New(cfg Config) *Retrier {
	if cfg.Schedule == nil {
		cfg.Schedule = Linear(200 * time.Millisecond)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Retrier{
		name:       cfg.Name,
		maxRetries: cfg.MaxRetries,
		schedule:   cfg.Schedule,
		retryable:  cfg.Retryable,
		onRetry:    cfg.OnRetry,
		logger:     cfg.Logger,
	}
}

// Retry executes operation, retrying retryable failures per the schedule.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(&scheduleBackOff{schedule: r.schedule}, uint64(r.maxRetries)),
		ctx,
	)

	attempt := 0

	return backoff.RetryNotify(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if r.retryable != nil && !r.retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}, b, func(err error, wait time.Duration) {
		attempt++

		r.logger.Warn().
			Err(err).
			Str("operation", r.name).
			Int("retry", attempt).
			Int("max_retries", r.maxRetries).
			Dur("wait", wait).
			Msg("retryable error, retrying")

		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}
	})
}

type scheduleBackOff struct {
	schedule Schedule
	attempt  int
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.schedule(b.attempt)
}

func (b *scheduleBackOff) Reset() {
	b.attempt = 0
}
