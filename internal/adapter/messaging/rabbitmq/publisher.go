package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Publisher sends batch envelopes to the exchange. It connects lazily and
// drops the session after any failure, so the next Publish call dials again.
type Publisher struct {
	connect  func(context.Context) (Channel, error)
	topology Topology
	logger   zerolog.Logger

	mu sync.Mutex
	ch Channel
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Connect  func(context.Context) (Channel, error)
	Topology Topology
	Logger   zerolog.Logger
}

// NewPublisher creates a new Publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{
		connect:  cfg.Connect,
		topology: cfg.Topology,
		logger:   cfg.Logger.With().Str("component", "rabbitmq_publisher").Logger(),
	}
}

// Publish sends body to the configured exchange and routing key.
func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSessionLocked(ctx); err != nil {
		return err
	}

	if err := p.ch.Publish(ctx, p.topology.Exchange, p.topology.RoutingKey, body); err != nil {
		_ = p.ch.Close()
		p.ch = nil
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// Ping reports whether a session can be held, dialing one if needed.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ensureSessionLocked(ctx)
}

// ensureSessionLocked dials and declares the topology when no session is
// held. The queue is declared and bound here so envelopes published before
// the consumer starts are not dropped as unroutable.
func (p *Publisher) ensureSessionLocked(ctx context.Context) error {
	if p.ch != nil {
		return nil
	}

	ch, err := p.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := p.topology.Declare(ch); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare topology: %w", err)
	}

	p.ch = ch
	p.logger.Info().
		Str("exchange", p.topology.Exchange).
		Str("routing_key", p.topology.RoutingKey).
		Msg("publisher connected")

	return nil
}

// Close releases the current session, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return nil
	}

	err := p.ch.Close()
	p.ch = nil

	return err
}
