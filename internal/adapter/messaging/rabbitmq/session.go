package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const exchangeKindTopic = "topic"

// ConnectionConfig describes how to reach the broker. URL takes precedence
// over the discrete fields.
type ConnectionConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	VHost    string

	Heartbeat time.Duration
	// ConfirmPublish puts the channel in confirm mode; Publish then waits for
	// the broker's ack.
	ConfirmPublish bool
	ConnectionName string
	Logger         zerolog.Logger
}

// AMQPURL returns the dial URL.
func (c ConnectionConfig) AMQPURL() string {
	if c.URL != "" {
		return c.URL
	}

	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}

	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

// Session is one broker connection with a single channel. It implements Channel.
type Session struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	confirm bool
	logger  zerolog.Logger
}

// Dial opens a connection and a channel.
func Dial(cfg ConnectionConfig) (*Session, error) {
	props := amqp.NewConnectionProperties()
	if cfg.ConnectionName != "" {
		props.SetClientConnectionName(cfg.ConnectionName)
	}

	amqpCfg := amqp.Config{Properties: props}
	if cfg.Heartbeat > 0 {
		amqpCfg.Heartbeat = cfg.Heartbeat
	}

	conn, err := amqp.DialConfig(cfg.AMQPURL(), amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if cfg.ConfirmPublish {
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("enable publisher confirms: %w", err)
		}
	}

	s := &Session{conn: conn, ch: ch, confirm: cfg.ConfirmPublish, logger: cfg.Logger}
	go s.logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)))

	return s, nil
}

// Connector returns a function that dials a new Session per call.
func Connector(cfg ConnectionConfig) func(context.Context) (Channel, error) {
	return func(context.Context) (Channel, error) {
		s, err := Dial(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (s *Session) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		s.logger.Warn().
			Str("exchange", r.Exchange).
			Str("routing_key", r.RoutingKey).
			Str("message_id", r.MessageId).
			Uint16("reply_code", r.ReplyCode).
			Str("reply_text", r.ReplyText).
			Msg("broker returned unroutable message")
	}
}

func (s *Session) DeclareExchange(name string) error {
	return s.ch.ExchangeDeclare(name, exchangeKindTopic, true, false, false, false, nil)
}

func (s *Session) DeclareQueue(name string) error {
	_, err := s.ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

func (s *Session) BindQueue(queue, exchange, routingKey string) error {
	return s.ch.QueueBind(queue, routingKey, exchange, false, nil)
}

func (s *Session) Qos(prefetch int) error {
	return s.ch.Qos(prefetch, 0, false)
}

// Publish sends body as a persistent JSON message with a ULID message id.
func (s *Session) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ulid.Make().String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	confirmation, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, true, false, msg)
	if err != nil {
		return err
	}

	if confirmation == nil {
		return nil
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("broker nacked message %s", msg.MessageId)
	}

	return nil
}

func (s *Session) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return s.ch.Consume(queue, consumerTag, false, false, false, false, nil)
}

func (s *Session) Cancel(consumerTag string) error {
	return s.ch.Cancel(consumerTag, false)
}

func (s *Session) Ack(tag uint64) error {
	return s.ch.Ack(tag, false)
}

func (s *Session) Nack(tag uint64, requeue bool) error {
	return s.ch.Nack(tag, false, requeue)
}

func (s *Session) NotifyClose() <-chan *amqp.Error {
	return s.ch.NotifyClose(make(chan *amqp.Error, 1))
}

// Close closes the channel and the connection. Calling it twice is harmless.
func (s *Session) Close() error {
	chErr := s.ch.Close()
	connErr := s.conn.Close()

	return errors.Join(ignoreClosed(chErr), ignoreClosed(connErr))
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
