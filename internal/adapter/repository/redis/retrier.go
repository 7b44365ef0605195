package redis

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/infrastructure/retry"
)

// Server replies that mean "try again shortly".
var transientReplies = []string{"LOADING", "READONLY", "TRYAGAIN", "MASTERDOWN", "CLUSTERDOWN"}

// BufferRetrierConfig configures the retry policy around buffer appends.
type BufferRetrierConfig struct {
	// MaxRetries counts attempts after the first; zero disables retrying.
	MaxRetries int
	// Base is the first wait; each further wait doubles it.
	Base    time.Duration
	Logger  zerolog.Logger
	OnRetry func(attempt int, err error)
}

// NewBufferRetrier creates a retrier that waits Base, 2×Base, 4×Base... and
// retries only network failures and transient server replies.
func NewBufferRetrier(cfg BufferRetrierConfig) *retry.Retrier {
	if cfg.Base == 0 {
		cfg.Base = 2 * time.Second
	}

	return retry.New(retry.Config{
		Name:       "redis_buffer",
		MaxRetries: cfg.MaxRetries,
		Schedule:   retry.Exponential(cfg.Base, 0),
		Retryable:  IsRetryableError,
		OnRetry:    cfg.OnRetry,
		Logger:     cfg.Logger,
	})
}

// IsRetryableError reports whether a Redis error is worth another attempt.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		msg := replyErr.Error()
		for _, prefix := range transientReplies {
			if strings.HasPrefix(msg, prefix) {
				return true
			}
		}
	}

	return false
}
