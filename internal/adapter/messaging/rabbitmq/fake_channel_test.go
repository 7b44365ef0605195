package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type nackCall struct {
	tag     uint64
	requeue bool
}

// fakeChannel is an in-memory Channel.
type fakeChannel struct {
	mu sync.Mutex

	deliveries chan amqp.Delivery
	closeCh    chan *amqp.Error

	declared   []string
	prefetch   int
	acks       []uint64
	nacks      []nackCall
	published  [][]byte
	cancelled  []string
	closeCount int

	declareErr error
	publishErr error
	consumeErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		deliveries: make(chan amqp.Delivery, 64),
		closeCh:    make(chan *amqp.Error, 1),
	}
}

func (f *fakeChannel) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, s)
}

func (f *fakeChannel) DeclareExchange(name string) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.record("exchange:" + name)
	return nil
}

func (f *fakeChannel) DeclareQueue(name string) error {
	f.record("queue:" + name)
	return nil
}

func (f *fakeChannel) BindQueue(queue, exchange, routingKey string) error {
	f.record(fmt.Sprintf("bind:%s:%s:%s", queue, exchange, routingKey))
	return nil
}

func (f *fakeChannel) Qos(prefetch int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetch = prefetch
	return nil
}

func (f *fakeChannel) Publish(_ context.Context, _, _ string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, body)
	return nil
}

func (f *fakeChannel) Consume(string, string) (<-chan amqp.Delivery, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	return f.deliveries, nil
}

func (f *fakeChannel) Cancel(tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, tag)
	return nil
}

func (f *fakeChannel) Ack(tag uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, tag)
	return nil
}

func (f *fakeChannel) Nack(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks = append(f.nacks, nackCall{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeChannel) NotifyClose() <-chan *amqp.Error {
	return f.closeCh
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

func (f *fakeChannel) snapshot() (acks []uint64, nacks []nackCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.acks...), append([]nackCall(nil), f.nacks...)
}

func (f *fakeChannel) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

// connectSequence hands out the given channels in order, returning errs[i]
// instead when it is non-nil.
type connectSequence struct {
	mu       sync.Mutex
	channels []*fakeChannel
	errs     []error
	calls    int
}

func (s *connectSequence) connect(context.Context) (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.channels) {
		return nil, errors.New("no more channels")
	}
	return s.channels[i], nil
}

func (s *connectSequence) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
