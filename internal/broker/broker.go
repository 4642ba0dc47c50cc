// Package broker defines the message broker abstraction of spec §4.5: a
// work queue carrying full blocks from producer to executor, and a
// pub/sub layer republishing individual packets to live subscribers.
// Grounded on original_source's fuel-message-broker msg_broker.rs trait;
// internal/broker/nats implements it over JetStream + core NATS, and
// internal/broker/memory is an in-process test double.
package broker

import (
	"context"

	"fuelstreams/internal/errs"
)

// Namespace prefixes every subject/queue name a broker touches, the way
// msg_broker.rs's Namespace type does ("subject_name"/"queue_name").
type Namespace string

// SubjectName renders val prefixed for pub/sub topics: "ns.val", or val
// unprefixed if ns is empty.
func (ns Namespace) SubjectName(val string) string {
	if ns == "" {
		return val
	}
	return string(ns) + "." + val
}

// QueueName renders val prefixed for work-queue/stream names: "ns_val".
func (ns Namespace) QueueName(val string) string {
	if ns == "" {
		return val
	}
	return string(ns) + "_" + val
}

// StreamName is the JetStream stream/consumer-group name for one block
// work queue, namespaced (SPEC_FULL.md §3 supplemented feature: stream
// and consumer naming).
func StreamName(ns Namespace) string { return ns.QueueName("blocks") }

// ConsumerName is the durable consumer name executors share when pulling
// from the block work queue.
func ConsumerName(ns Namespace) string { return ns.QueueName("block-executors") }

// Message is one delivery off the block work queue: its raw payload, and
// an explicit Ack the executor calls only after the block is fully
// persisted and published (spec §4.6 step 6).
type Message interface {
	Payload() []byte
	Ack(ctx context.Context) error
}

// BlockStream yields Messages until the context is cancelled or the
// broker connection is lost.
type BlockStream interface {
	Next(ctx context.Context) (Message, error)
	Close() error
}

// EventStream yields raw published payloads off a pub/sub subscription.
type EventStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Broker is the operation set spec §4.5 and msg_broker.rs's MessageBroker
// trait both name: work-queue publish/receive for blocks, pub/sub
// publish/subscribe for individual packet events, flush, and health.
type Broker interface {
	Namespace() Namespace
	Setup(ctx context.Context) error
	IsConnected() bool

	PublishBlock(ctx context.Context, id string, payload []byte) error
	ReceiveBlocksStream(ctx context.Context, batchSize int) (BlockStream, error)

	PublishEvent(ctx context.Context, subject string, payload []byte) error
	SubscribeToEvents(ctx context.Context, subjectPattern string) (EventStream, error)

	Flush(ctx context.Context) error
	IsHealthy(ctx context.Context) bool
	Close() error
}

// ErrClosed is returned by a stream's Next when the channel it reads from
// has been closed. Close does not close that channel in the memory or NATS
// implementations, so a Next after Close returns when its ctx is done.
var ErrClosed = errs.New(errs.KindTransport, errs.ReasonClosed, "broker stream closed")
