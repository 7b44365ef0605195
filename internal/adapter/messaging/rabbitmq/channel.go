// Package rabbitmq carries batch envelopes between the ledger and balance
// services over AMQP 0-9-1.
package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the broker surface the publisher and consumer depend on. Every
// call may fail with a connectivity error and none of them retry; callers
// decide what to do.
type Channel interface {
	// DeclareExchange declares a durable topic exchange. Safe to repeat.
	DeclareExchange(name string) error
	// DeclareQueue declares a durable queue. Safe to repeat.
	DeclareQueue(name string) error
	BindQueue(queue, exchange, routingKey string) error
	// Qos limits unacknowledged deliveries in flight for this channel.
	Qos(prefetch int) error
	// Publish sends a persistent, mandatory message.
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	Consume(queue, consumerTag string) (<-chan amqp.Delivery, error)
	Cancel(consumerTag string) error
	Ack(tag uint64) error
	Nack(tag uint64, requeue bool) error
	// NotifyClose yields once when the channel or its connection goes away.
	NotifyClose() <-chan *amqp.Error
	Close() error
}

// Topology names the exchange, queue and binding both services agree on.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// Declare creates the exchange and queue and binds them.
func (t Topology) Declare(ch Channel) error {
	if err := ch.DeclareExchange(t.Exchange); err != nil {
		return err
	}
	if err := ch.DeclareQueue(t.Queue); err != nil {
		return err
	}
	return ch.BindQueue(t.Queue, t.Exchange, t.RoutingKey)
}
