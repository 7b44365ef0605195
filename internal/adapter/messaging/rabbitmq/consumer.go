package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/usecase"
)

// CommandHandler applies one consolidation command.
type CommandHandler interface {
	Handle(ctx context.Context, cmd usecase.ProcessTransactionEventCommand) error
}

var errDeliveriesClosed = errors.New("delivery channel closed by broker")

// Consumer receives batch envelopes and feeds every event to a
// CommandHandler. Each delivery is acknowledged once after all of its
// events were handled; a handler failure requeues the whole delivery. An
// envelope with any undecodable element is rejected without requeue before
// a single event is handled.
type Consumer struct {
	connect     func(context.Context) (Channel, error)
	handler     CommandHandler
	topology    Topology
	prefetch    int
	consumerTag string
	drainGrace  time.Duration
	newBackOff  func() backoff.BackOff
	logger      zerolog.Logger
	metrics     *metrics.Metrics

	state atomic.Int32
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Connect     func(context.Context) (Channel, error)
	Handler     CommandHandler
	Topology    Topology
	Prefetch    int
	ConsumerTag string
	// DrainGrace bounds how long shutdown waits for in-flight deliveries
	// before cancelling them.
	DrainGrace time.Duration
	// ReconnectMaxWait caps the exponential wait between reconnect attempts.
	ReconnectMaxWait time.Duration
	// NewBackOff overrides the reconnect schedule.
	NewBackOff func() backoff.BackOff
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics // optional
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 5
	}
	if cfg.ConsumerTag == "" {
		cfg.ConsumerTag = "cashflow-balance"
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = 10 * time.Second
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = 30 * time.Second
	}
	if cfg.NewBackOff == nil {
		maxWait := cfg.ReconnectMaxWait
		cfg.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = maxWait
			b.MaxElapsedTime = 0
			return b
		}
	}

	c := &Consumer{
		connect:     cfg.Connect,
		handler:     cfg.Handler,
		topology:    cfg.Topology,
		prefetch:    cfg.Prefetch,
		consumerTag: cfg.ConsumerTag,
		drainGrace:  cfg.DrainGrace,
		newBackOff:  cfg.NewBackOff,
		logger:      cfg.Logger.With().Str("component", "rabbitmq_consumer").Str("queue", cfg.Topology.Queue).Logger(),
		metrics:     cfg.Metrics,
	}
	c.setState(StateDisconnected)

	return c
}

// State returns the current lifecycle state.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

func (c *Consumer) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if c.metrics != nil {
		c.metrics.ConsumerState.WithLabelValues(prev.String()).Set(0)
		c.metrics.ConsumerState.WithLabelValues(s.String()).Set(1)
	}
	if prev != s {
		c.logger.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("consumer state changed")
	}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the connection or channel is lost. It returns nil after a clean
// shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.setState(StateClosed)

	bo := c.newBackOff()

	for {
		c.setState(StateConnecting)
		err := c.session(ctx, bo)

		if ctx.Err() != nil {
			c.setState(StateShuttingDown)
			return nil
		}

		c.setState(StateError)
		c.logger.Error().Err(err).Msg("consumer session ended")

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("giving up reconnecting: %w", err)
		}

		c.setState(StateReconnecting)
		if c.metrics != nil {
			c.metrics.ConsumerReconnects.Inc()
		}
		c.logger.Info().Dur("wait", wait).Msg("reconnecting to broker")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateShuttingDown)
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection's lifetime. It returns nil only on shutdown.
func (c *Consumer) session(ctx context.Context, bo backoff.BackOff) error {
	ch, err := c.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("closing broker channel")
		}
	}()

	closed := ch.NotifyClose()

	c.setState(StateDeclaring)
	if err := c.topology.Declare(ch); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	if err := ch.Qos(c.prefetch); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(c.topology.Queue, c.consumerTag)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.setState(StateConsuming)
	bo.Reset()
	c.logger.Info().
		Str("exchange", c.topology.Exchange).
		Str("routing_key", c.topology.RoutingKey).
		Int("prefetch", c.prefetch).
		Msg("consuming")

	// In-flight handlers outlive ctx so shutdown can let them finish.
	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHandlers()

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.prefetch)

	loopErr := c.dispatch(ctx, handlerCtx, ch, deliveries, closed, sem, &wg)

	if loopErr == nil {
		c.setState(StateShuttingDown)
		if err := ch.Cancel(c.consumerTag); err != nil {
			c.logger.Warn().Err(err).Msg("cancelling consumer")
		}
	}

	c.drain(&wg, cancelHandlers)

	return loopErr
}

func (c *Consumer) dispatch(
	ctx, handlerCtx context.Context,
	ch Channel,
	deliveries <-chan amqp.Delivery,
	closed <-chan *amqp.Error,
	sem chan struct{},
	wg *sync.WaitGroup,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return errors.New("broker channel closed")
			}
			return fmt.Errorf("broker channel closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// Not acked; the broker redelivers it once the channel closes.
				return nil
			}

			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handleDelivery(handlerCtx, ch, d)
			}(d)
		}
	}
}

// drain waits for in-flight deliveries, cancelling them after the grace period.
func (c *Consumer) drain(wg *sync.WaitGroup, cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.drainGrace):
		c.logger.Warn().Dur("grace", c.drainGrace).Msg("in-flight deliveries did not finish, cancelling")
		cancel()
		<-done
	}
}

// handleDelivery processes one batch envelope. ctx is scoped to this
// delivery and carries its logger.
func (c *Consumer) handleDelivery(ctx context.Context, ch Channel, d amqp.Delivery) {
	start := time.Now()
	log := c.logger.With().
		Uint64("delivery_tag", d.DeliveryTag).
		Str("message_id", d.MessageId).
		Bool("redelivered", d.Redelivered).
		Logger()
	ctx = log.WithContext(ctx)

	if c.metrics != nil {
		c.metrics.DeliveriesReceived.Inc()
		defer func() { c.metrics.DeliveryDuration.Observe(time.Since(start).Seconds()) }()
	}

	events, err := domain.DecodeBatch(d.Body)
	if err != nil {
		log.Error().Err(err).Int("body_len", len(d.Body)).Msg("discarding undecodable envelope")
		c.reject(ch, d, false, log)
		return
	}

	for i, event := range events {
		if err := c.handler.Handle(ctx, usecase.CommandFromEvent(event)); err != nil {
			log.Error().
				Err(err).
				Int("index", i).
				Str("transaction_id", event.TransactionID).
				Msg("consolidation failed, requeueing delivery")
			c.reject(ch, d, true, log)
			return
		}

		if c.metrics != nil {
			c.metrics.EventsConsolidated.WithLabelValues(event.Type.String()).Inc()
		}
	}

	if err := ch.Ack(d.DeliveryTag); err != nil {
		// The broker redelivers on reconnect.
		log.Error().Err(err).Msg("ack failed")
		return
	}

	if c.metrics != nil {
		c.metrics.DeliveriesAcked.Inc()
	}

	log.Debug().
		Int("events", len(events)).
		Dur("elapsed", time.Since(start)).
		Msg("delivery processed")
}

func (c *Consumer) reject(ch Channel, d amqp.Delivery, requeue bool, log zerolog.Logger) {
	if err := ch.Nack(d.DeliveryTag, requeue); err != nil {
		log.Error().Err(err).Bool("requeue", requeue).Msg("nack failed")
		return
	}

	if c.metrics != nil {
		c.metrics.DeliveriesRejected.WithLabelValues(strconv.FormatBool(requeue)).Inc()
	}
}
