package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
)

// MessageBuffer implements usecase.MessageBuffer on a Redis list. Entries are
// appended with RPUSH and consumed from the head, so list order is buffer order.
type MessageBuffer struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewMessageBuffer creates a new MessageBuffer.
func NewMessageBuffer(client *redis.Client) *MessageBuffer {
	return &MessageBuffer{client: client}
}

// WithMetrics counts appends by outcome.
func (b *MessageBuffer) WithMetrics(m *metrics.Metrics) *MessageBuffer {
	b.metrics = m
	return b
}

// Append serializes event and pushes it to the tail of the list at key.
func (b *MessageBuffer) Append(ctx context.Context, key string, event domain.TransactionRegisteredEvent) error {
	entry, err := domain.EncodeEvent(event)
	if err != nil {
		return err
	}

	if err := b.client.RPush(ctx, key, entry).Err(); err != nil {
		b.countAppend("error")
		return fmt.Errorf("rpush %s: %w", key, err)
	}

	b.countAppend("ok")
	return nil
}

func (b *MessageBuffer) countAppend(status string) {
	if b.metrics != nil {
		b.metrics.BufferAppends.WithLabelValues(status).Inc()
	}
}

// Len returns the number of buffered entries.
func (b *MessageBuffer) Len(ctx context.Context, key string) (int64, error) {
	n, err := b.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}

	return n, nil
}

// Range returns up to n entries from the head without removing them.
func (b *MessageBuffer) Range(ctx context.Context, key string, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	entries, err := b.client.LRange(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	return entries, nil
}

// Trim drops the first n entries. Entries appended after the matching Range
// call sit past index n and are kept.
func (b *MessageBuffer) Trim(ctx context.Context, key string, n int64) error {
	if n <= 0 {
		return nil
	}

	if err := b.client.LTrim(ctx, key, n, -1).Err(); err != nil {
		return fmt.Errorf("ltrim %s: %w", key, err)
	}

	return nil
}
