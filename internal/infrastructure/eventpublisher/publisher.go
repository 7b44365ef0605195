package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/usecase"
)

// Drain stages, used as metric labels.
const (
	stageRead    = "read"
	stageEncode  = "encode"
	stagePublish = "publish"
	stageTrim    = "trim"
)

// Publisher sends one batch envelope to the broker.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// BatchPublisher drains the message buffer on a timer and publishes the
// entries as a single envelope. Entries are trimmed only after the broker
// accepted the envelope, so a failed tick leaves them for the next one.
type BatchPublisher struct {
	buffer    usecase.MessageBuffer
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	batchKey  string
	batchSize int64
	interval  time.Duration
}

// Config for BatchPublisher.
type Config struct {
	Buffer    usecase.MessageBuffer
	Publisher Publisher
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics // optional
	BatchKey  string
	BatchSize int           // Maximum entries per envelope
	Interval  time.Duration // Drain interval
}

// NewBatchPublisher creates a new BatchPublisher.
func NewBatchPublisher(cfg Config) *BatchPublisher {
	if cfg.BatchKey == "" {
		cfg.BatchKey = usecase.DefaultBatchKey
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}

	return &BatchPublisher{
		buffer:    cfg.Buffer,
		publisher: cfg.Publisher,
		logger:    cfg.Logger.With().Str("component", "batch_publisher").Logger(),
		metrics:   cfg.Metrics,
		batchKey:  cfg.BatchKey,
		batchSize: int64(cfg.BatchSize),
		interval:  cfg.Interval,
	}
}

// Start begins the drain loop. It runs until the context is cancelled.
func (p *BatchPublisher) Start(ctx context.Context) error {
	p.logger.Info().
		Str("batch_key", p.batchKey).
		Int64("batch_size", p.batchSize).
		Dur("interval", p.interval).
		Msg("batch publisher started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("batch publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("batch drain failed, entries kept for next tick")
			}
		}
	}
}

// processBatch publishes up to batchSize entries from the head of the buffer
// and returns how many were published.
func (p *BatchPublisher) processBatch(ctx context.Context) (int, error) {
	count, err := p.buffer.Len(ctx, p.batchKey)
	if err != nil {
		p.fail(stageRead)
		return 0, fmt.Errorf("read buffer length: %w", err)
	}

	if p.metrics != nil {
		p.metrics.BufferDepth.Set(float64(count))
	}

	if count == 0 {
		return 0, nil
	}

	entries, err := p.buffer.Range(ctx, p.batchKey, p.batchSize)
	if err != nil {
		p.fail(stageRead)
		return 0, fmt.Errorf("read buffer entries: %w", err)
	}

	if len(entries) == 0 {
		return 0, nil
	}

	body, err := domain.EncodeEnvelope(entries)
	if err != nil {
		p.fail(stageEncode)
		return 0, fmt.Errorf("encode envelope: %w", err)
	}

	if err := p.publisher.Publish(ctx, body); err != nil {
		p.fail(stagePublish)
		return 0, fmt.Errorf("publish envelope of %d entries: %w", len(entries), err)
	}

	if p.metrics != nil {
		p.metrics.BatchesPublished.Inc()
		p.metrics.BatchSize.Observe(float64(len(entries)))
	}

	if err := p.buffer.Trim(ctx, p.batchKey, int64(len(entries))); err != nil {
		// The envelope is already out; these entries will be published again.
		p.fail(stageTrim)
		return len(entries), fmt.Errorf("trim %d published entries: %w", len(entries), err)
	}

	p.logger.Debug().
		Int("count", len(entries)).
		Int64("remaining", count-int64(len(entries))).
		Msg("batch published")

	return len(entries), nil
}

func (p *BatchPublisher) fail(stage string) {
	if p.metrics != nil {
		p.metrics.BatchesFailed.WithLabelValues(stage).Inc()
	}
}

// LogPublisher is a Publisher that only logs envelopes. It backs local runs
// without a broker.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the envelope.
func (p *LogPublisher) Publish(_ context.Context, body []byte) error {
	entries, err := domain.DecodeEnvelope(body)
	if err != nil {
		return err
	}

	p.logger.Info().
		Int("count", len(entries)).
		RawJSON("envelope", body).
		Msg("batch published")

	return nil
}
