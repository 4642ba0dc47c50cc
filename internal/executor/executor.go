// Package executor implements the block executor of spec §4.6: a state
// machine that drains the broker's block work queue, builds packets,
// commits them in one transaction, republishes live events, and acks --
// retrying transient failures with exponential backoff. Grounded on
// original_source's fuel-streams-executors crate and orbas1-Synnergy's
// retry/worker-loop idiom (context-bounded loops, logrus-structured logs).
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"fuelstreams/internal/broker"
	"fuelstreams/internal/errs"
	"fuelstreams/internal/packet"
	"fuelstreams/internal/record"
)

// State names one point in the per-block state machine of spec §4.6.
// Cancelled is reachable from every other state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateBuilding
	StatePersisting
	StatePublishing
	StateAcking
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBuilding:
		return "building"
	case StatePersisting:
		return "persisting"
	case StatePublishing:
		return "publishing"
	case StateAcking:
		return "acking"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Stats is the per-block summary emitted at the end of a cycle (spec
// §4.6 step 6).
type Stats struct {
	BlockHeight  uint64
	PacketCount  int
	Duration     time.Duration
	Err          error
}

// Store is the subset of internal/store.Store the executor needs,
// narrowed to keep this package independent of pgx types.
type Store interface {
	InsertBlockAtomically(ctx context.Context, packets []packet.Packet) error
}

// RetryConfig mirrors the executor_retry.* configuration surface
// (spec §6.4): bounded exponential backoff over retryable errors only.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	AttemptTimeout time.Duration
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Executor drains one broker work queue, running the build -> persist ->
// publish -> ack cycle per block.
type Executor struct {
	Broker        broker.Broker
	Store         Store
	Namespace     string
	Retry         RetryConfig
	MaxWorkers    int
	Compression   record.CompressionMode
	Log           *logrus.Logger
	OnStats       func(Stats)
}

// decodeBlockPayload decodes the work-queue message body into a
// packet.BlockPayload. This is a plain JSON decode: the broker carries
// canonical JSON block payloads (spec §4.2/§6.1).
func decodeBlockPayload(raw []byte) (packet.BlockPayload, error) {
	var p packet.BlockPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return packet.BlockPayload{}, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "decode block payload")
	}
	return p, nil
}

// Run drains the broker's block stream until ctx is cancelled, processing
// one block at a time (spec §4.6 "blocks are processed in the order
// received from the work queue").
func (e *Executor) Run(ctx context.Context) error {
	stream, err := e.Broker.ReceiveBlocksStream(ctx, 1)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logf(logrus.Fields{"state": StateFetching.String()}, "receive block message: %v", err)
			continue
		}

		e.processOne(ctx, msg)
	}
}

func (e *Executor) processOne(ctx context.Context, msg broker.Message) {
	start := time.Now()
	state := StateFetching

	payload, err := decodeBlockPayload(msg.Payload())
	if err != nil {
		// Codec errors are fatal for this message: not retried, not acked.
		e.emitStats(Stats{Duration: time.Since(start), Err: err})
		return
	}
	height := payload.Height
	state = StateBuilding

	pkts, err := packet.Build(payload, e.Namespace, e.Compression, e.MaxWorkers)
	if err != nil {
		e.emitStats(Stats{BlockHeight: height, Duration: time.Since(start), Err: err})
		return
	}

	state = StatePersisting
	if err := e.withRetry(ctx, state, func(ctx context.Context) error {
		return e.Store.InsertBlockAtomically(ctx, pkts)
	}); err != nil {
		e.emitStats(Stats{BlockHeight: height, PacketCount: len(pkts), Duration: time.Since(start), Err: err})
		return
	}

	state = StatePublishing
	if err := e.withRetry(ctx, state, func(ctx context.Context) error {
		return e.publishAll(ctx, pkts)
	}); err != nil {
		// Publish failed after a successful commit: per spec §4.6 failure
		// semantics, the message is NOT acked so the broker redelivers;
		// the redelivered commit is a no-op by the conflict clause and
		// publishes re-emit (downstream dedupes by cursor).
		e.emitStats(Stats{BlockHeight: height, PacketCount: len(pkts), Duration: time.Since(start), Err: err})
		return
	}

	state = StateAcking
	if err := msg.Ack(ctx); err != nil {
		e.emitStats(Stats{BlockHeight: height, PacketCount: len(pkts), Duration: time.Since(start), Err: err})
		return
	}

	e.emitStats(Stats{BlockHeight: height, PacketCount: len(pkts), Duration: time.Since(start)})
}

// publishAll republishes every packet's event after the block's commit.
// Reordering across packets within the block is explicitly allowed
// (spec §4.6 step 4); only the commit-before-publish ordering matters.
func (e *Executor) publishAll(ctx context.Context, pkts []packet.Packet) error {
	for _, p := range pkts {
		if err := e.Broker.PublishEvent(ctx, p.Subject, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// withRetry runs fn under the configured exponential-backoff policy,
// bounding each attempt by Retry.AttemptTimeout and retrying only
// errs.Retryable failures (spec §4.6 "Retry").
func (e *Executor) withRetry(ctx context.Context, state State, fn func(context.Context) error) error {
	maxAttempts := e.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if e.Retry.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, e.Retry.AttemptTimeout)
		}
		lastErr = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errs.Retryable(lastErr) {
			return lastErr
		}

		e.logf(logrus.Fields{"state": state.String(), "attempt": attempt + 1}, "retryable error: %v", lastErr)

		select {
		case <-time.After(e.Retry.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (e *Executor) emitStats(s Stats) {
	if e.OnStats != nil {
		e.OnStats(s)
	}
	fields := logrus.Fields{"block_height": s.BlockHeight, "packet_count": s.PacketCount, "duration_ms": s.Duration.Milliseconds()}
	if e.Log == nil {
		return
	}
	if s.Err != nil {
		fields["error"] = s.Err.Error()
		e.Log.WithFields(fields).Error("block processing failed")
		return
	}
	e.Log.WithFields(fields).Info("block processed")
}

func (e *Executor) logf(fields logrus.Fields, format string, args ...any) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(fields).Infof(format, args...)
}
