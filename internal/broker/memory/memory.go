// Package memory is an in-process broker.Broker used by tests and local
// development: a buffered channel stands in for the work queue, and a
// simple fan-out registry stands in for pub/sub. It never touches the
// network.
package memory

import (
	"context"
	"strings"
	"sync"

	"fuelstreams/internal/broker"
)

type blockMsg struct {
	payload []byte
}

func (m *blockMsg) Payload() []byte                  { return m.payload }
func (m *blockMsg) Ack(ctx context.Context) error    { return nil }

type blockStream struct {
	ch     <-chan []byte
	closed *bool
	mu     *sync.Mutex
}

func (s *blockStream) Next(ctx context.Context) (broker.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload, ok := <-s.ch:
		if !ok {
			return nil, broker.ErrClosed
		}
		return &blockMsg{payload: payload}, nil
	}
}

func (s *blockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.closed = true
	return nil
}

type eventStream struct {
	ch     chan []byte
	unsub  func()
	once   sync.Once
}

func (s *eventStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload, ok := <-s.ch:
		if !ok {
			return nil, broker.ErrClosed
		}
		return payload, nil
	}
}

func (s *eventStream) Close() error {
	s.once.Do(s.unsub)
	return nil
}

// Broker is the in-memory broker.Broker implementation.
type Broker struct {
	ns broker.Namespace

	mu        sync.Mutex
	blocks    chan []byte
	listeners map[int]subscriber
	nextID    int
}

type subscriber struct {
	pattern string
	ch      chan []byte
}

// New builds a Broker with the given namespace and work-queue capacity.
func New(ns broker.Namespace, queueCapacity int) *Broker {
	if queueCapacity <= 0 {
		queueCapacity = 1024
	}
	return &Broker{
		ns:        ns,
		blocks:    make(chan []byte, queueCapacity),
		listeners: map[int]subscriber{},
	}
}

func (b *Broker) Namespace() broker.Namespace { return b.ns }
func (b *Broker) Setup(ctx context.Context) error { return nil }
func (b *Broker) IsConnected() bool               { return true }

func (b *Broker) PublishBlock(ctx context.Context, id string, payload []byte) error {
	select {
	case b.blocks <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) ReceiveBlocksStream(ctx context.Context, batchSize int) (broker.BlockStream, error) {
	closed := false
	return &blockStream{ch: b.blocks, closed: &closed, mu: &sync.Mutex{}}, nil
}

func (b *Broker) PublishEvent(ctx context.Context, subject string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.listeners {
		if !matchesPattern(sub.pattern, subject) {
			continue
		}
		select {
		case sub.ch <- payload:
		default: // a slow subscriber drops rather than stalling the publisher
		}
	}
	return nil
}

func (b *Broker) SubscribeToEvents(ctx context.Context, subjectPattern string) (broker.EventStream, error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan []byte, 256)
	b.listeners[id] = subscriber{pattern: subjectPattern, ch: ch}
	b.mu.Unlock()

	return &eventStream{ch: ch, unsub: func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}}, nil
}

func (b *Broker) Flush(ctx context.Context) error     { return nil }
func (b *Broker) IsHealthy(ctx context.Context) bool  { return true }
func (b *Broker) Close() error                        { return nil }

// matchesPattern implements the dotted, '*'/'>' wildcard match subject
// patterns use elsewhere in the system (internal/subject), so a memory
// subscription behaves like a real NATS subject filter would.
func matchesPattern(pattern, subject string) bool {
	pSegs := strings.Split(pattern, ".")
	sSegs := strings.Split(subject, ".")
	for i, p := range pSegs {
		if i >= len(sSegs) {
			return false
		}
		if p == ">" {
			return true
		}
		if p != "*" && p != sSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(sSegs)
}
