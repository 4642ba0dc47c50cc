// Package nats implements broker.Broker over NATS: JetStream for the
// durable block work queue, core NATS publish/subscribe for the live
// packet event stream. Grounded on original_source's fuel-streams-nats
// nats_client.rs (connect/publish/subscribe shape) and fuel-message-broker
// msg_broker.rs (the operation set), adapted to the nats.go client the
// teacher's dependency pack already carries.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"fuelstreams/internal/broker"
	"fuelstreams/internal/errs"
)

// Options configures the NATS connection (SPEC_FULL.md §3 supplemented
// feature: broker connection options), mirroring NatsClientOpts's
// url/timeout shape plus the reconnect knobs async_nats exposes as
// ConnectOptions and nats.go exposes as Options.
type Options struct {
	URL              string
	ClientName       string
	ConnectTimeout   time.Duration
	MaxReconnects    int
	Namespace        broker.Namespace
}

// Broker is the NATS-backed broker.Broker.
type Broker struct {
	opts Options
	nc   *nats.Conn
	js   jetstream.JetStream
}

// Connect dials the NATS server and wraps it with a JetStream context,
// the way NatsClient::connect does for async_nats.
func Connect(ctx context.Context, opts Options) (*Broker, error) {
	connOpts := []nats.Option{
		nats.Name(opts.ClientName),
		nats.Timeout(opts.ConnectTimeout),
		nats.MaxReconnects(opts.MaxReconnects),
	}
	nc, err := nats.Connect(opts.URL, connOpts...)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, fmt.Sprintf("connect to nats at %s", opts.URL))
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, "open jetstream context")
	}

	b := &Broker{opts: opts, nc: nc, js: js}
	if err := b.Setup(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return b, nil
}

func (b *Broker) Namespace() broker.Namespace { return b.opts.Namespace }

// Setup creates the durable block work-queue stream and consumer if they
// don't already exist (msg_broker.rs's "setup required infrastructure").
func (b *Broker) Setup(ctx context.Context) error {
	streamName := broker.StreamName(b.opts.Namespace)
	subject := b.opts.Namespace.SubjectName("blocks.>")

	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, "create block work-queue stream")
	}

	_, err = b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       broker.ConsumerName(b.opts.Namespace),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, "create block work-queue consumer")
	}
	return nil
}

func (b *Broker) IsConnected() bool { return b.nc.IsConnected() }

// PublishBlock enqueues a full block payload keyed by id (spec §4.5
// "publish_block"). id becomes the trailing subject segment so JetStream
// subject-based routing and dedup windows can key on it.
func (b *Broker) PublishBlock(ctx context.Context, id string, payload []byte) error {
	subject := b.opts.Namespace.SubjectName("blocks." + id)
	_, err := b.js.Publish(ctx, subject, payload, jetstream.WithMsgID(id))
	if err != nil {
		return errs.Wrap(errs.KindTransport, errs.ReasonPublish, err, "publish block "+id)
	}
	return nil
}

type jsBlockMessage struct {
	msg jetstream.Msg
}

func (m *jsBlockMessage) Payload() []byte { return m.msg.Data() }
func (m *jsBlockMessage) Ack(ctx context.Context) error {
	if err := m.msg.Ack(); err != nil {
		return errs.Wrap(errs.KindTransport, errs.ReasonUnexpected, err, "ack block message")
	}
	return nil
}

type jsBlockStream struct {
	consumer jetstream.Consumer
	msgs     jetstream.MessagesContext
}

func (s *jsBlockStream) Next(ctx context.Context) (broker.Message, error) {
	msg, err := s.msgs.Next()
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, errs.ReasonReceive, err, "receive block message")
	}
	return &jsBlockMessage{msg: msg}, nil
}

func (s *jsBlockStream) Close() error {
	s.msgs.Stop()
	return nil
}

// ReceiveBlocksStream opens a pull consumer over the block work queue
// (spec §4.5 "receive_blocks_stream").
func (b *Broker) ReceiveBlocksStream(ctx context.Context, batchSize int) (broker.BlockStream, error) {
	streamName := broker.StreamName(b.opts.Namespace)
	consumer, err := b.js.Consumer(ctx, streamName, broker.ConsumerName(b.opts.Namespace))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, "lookup block consumer")
	}

	if batchSize <= 0 {
		batchSize = 1
	}
	msgs, err := consumer.Messages(jetstream.PullMaxMessages(batchSize))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, "open pull subscription")
	}
	return &jsBlockStream{consumer: consumer, msgs: msgs}, nil
}

// PublishEvent republishes one packet onto its live-publish subject (spec
// §4.5 "publish_event").
func (b *Broker) PublishEvent(ctx context.Context, subject string, payload []byte) error {
	if err := b.nc.Publish(subject, payload); err != nil {
		return errs.Wrap(errs.KindTransport, errs.ReasonPublish, err, "publish event "+subject)
	}
	return nil
}

type coreEventStream struct {
	sub *nats.Subscription
	ch  chan *nats.Msg
}

func (s *coreEventStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return nil, broker.ErrClosed
		}
		return msg.Data, nil
	}
}

func (s *coreEventStream) Close() error {
	return s.sub.Unsubscribe()
}

// SubscribeToEvents subscribes to a (possibly wildcarded) subject pattern
// for live delivery (spec §4.5 "subscribe_to_events").
func (b *Broker) SubscribeToEvents(ctx context.Context, subjectPattern string) (broker.EventStream, error) {
	ch := make(chan *nats.Msg, 256)
	sub, err := b.nc.ChanSubscribe(subjectPattern, ch)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, errs.ReasonConnection, err, "subscribe to "+subjectPattern)
	}
	return &coreEventStream{sub: sub, ch: ch}, nil
}

func (b *Broker) Flush(ctx context.Context) error {
	if err := b.nc.FlushWithContext(ctx); err != nil {
		return errs.Wrap(errs.KindTransport, errs.ReasonFlush, err, "flush nats connection")
	}
	return nil
}

func (b *Broker) IsHealthy(ctx context.Context) bool {
	return b.nc.IsConnected() && b.nc.Status() == nats.CONNECTED
}

func (b *Broker) Close() error {
	b.nc.Close()
	return nil
}
