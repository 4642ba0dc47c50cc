// Package subscription implements the subscription engine of spec §4.7:
// joining a bounded historical backfill with a live broker feed into one
// ordered, cursor-gapless output stream per subscription. Grounded on
// spec.md's explicit join algorithm; no direct teacher analogue exists,
// so the task/channel shape follows orbas1-Synnergy's goroutine-per-
// worker idiom (bounded buffered channels, context cancellation).
package subscription

import (
	"context"
	"encoding/json"
	"time"

	"fuelstreams/internal/broker"
	"fuelstreams/internal/errs"
	"fuelstreams/internal/record"
)

// DeliverPolicy selects where a subscription's output starts (spec
// §4.7: "(subject_pattern, deliver_policy) where deliver_policy ∈
// {FromBlock(H), Live}").
type DeliverPolicy struct {
	Live      bool
	FromBlock uint64
}

// Historical drains rows for one entity matching filters/namespace,
// starting at fromHeight, until the table is exhausted at its current
// head (the narrow surface internal/store.Store.StreamBySubject fills).
type Historical interface {
	StreamBySubject(ctx context.Context, entityID string, filters map[string]string, namespace string, fromHeight uint64, pageSize int) (<-chan record.Row, <-chan error)
}

// Item is one emitted value: a durable row (historical phase) or a
// broker event (live phase), normalized to a cursor so the engine can
// dedupe across the historical/live seam. Value is always the decoded
// canonical JSON record (spec §4.2: "JSON is used on the wire to
// subscribers"), never the durable binary envelope. Subject is only
// populated for historical items; the live EventStream carries no
// topic alongside its payload.
type Item struct {
	Cursor  record.Cursor
	Subject string
	Value   []byte
}

// Pacing holds the two independent sleep constants of spec §4.7
// ("STREAM_THROTTLE_HISTORICAL"/"STREAM_THROTTLE_LIVE").
type Pacing struct {
	ThrottleHistorical time.Duration
	ThrottleLive       time.Duration
}

// Engine joins one subscription's historical backfill with its live feed.
type Engine struct {
	Store  Historical
	Broker broker.Broker
	Pacing Pacing
}

// Params is one subscription's parameters: the compiled entity id, its
// equality filters, the namespace prefix, and the live subject pattern to
// join against.
type Params struct {
	EntityID       string
	Filters        map[string]string
	Namespace      string
	LiveSubject    string
	Policy         DeliverPolicy
	HistoricalPage int
}

// Run executes the join of spec §4.7 and sends items to out until ctx is
// cancelled or the historical/live drain ends. out is closed on return.
func (e *Engine) Run(ctx context.Context, p Params, out chan<- Item) error {
	defer close(out)

	if !p.Policy.Live && p.Policy.FromBlock == 0 {
		return errs.New(errs.KindProtocol, errs.ReasonInvalidPayload, "deliver policy must be Live or FromBlock(H)")
	}

	live, err := e.Broker.SubscribeToEvents(ctx, p.LiveSubject)
	if err != nil {
		return err
	}
	defer live.Close()

	liveBuf := make(chan []byte, 1024)
	liveErrCh := make(chan error, 1)
	go pumpLive(ctx, live, liveBuf, liveErrCh)

	var lastEmitted record.Cursor
	haveEmitted := false

	if !p.Policy.Live {
		rows, rowErrs := e.Store.StreamBySubject(ctx, p.EntityID, p.Filters, p.Namespace, p.Policy.FromBlock, pageSizeOrDefault(p.HistoricalPage))

	historicalLoop:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-rowErrs:
				if err != nil {
					return err
				}
			case row, ok := <-rows:
				if !ok {
					break historicalLoop
				}
				decoded, err := record.Decode(row.Value)
				if err != nil {
					return err
				}
				cur := record.Cursor{BlockHeight: row.BlockHeight, TxIndex: row.TxIndex, ElementIndex: row.ElementIndex}
				item := Item{Cursor: cur, Subject: row.Subject, Value: decoded}
				if !sendOrDone(ctx, out, item) {
					return ctx.Err()
				}
				lastEmitted = cur
				haveEmitted = true
				sleep(ctx, e.Pacing.ThrottleHistorical)
			}
		}
	}

	// head = the last cursor the historical drain reached; items buffered
	// live at or below it are dropped as already-seen (spec §4.7 step 3).
	head := lastEmitted

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-liveErrCh:
			return err
		case payload, ok := <-liveBuf:
			if !ok {
				return nil
			}
			decoded, err := record.Decode(payload)
			if err != nil {
				continue // malformed envelope: skip rather than abort the subscription
			}
			cur, err := decodeLiveCursor(decoded)
			if err != nil {
				continue // malformed live payload: skip rather than abort the subscription
			}
			if haveEmitted && cur.Compare(head) <= 0 {
				continue
			}
			if !sendOrDone(ctx, out, Item{Cursor: cur, Value: decoded}) {
				return ctx.Err()
			}
			sleep(ctx, e.Pacing.ThrottleLive)
		}
	}
}

func pumpLive(ctx context.Context, live broker.EventStream, out chan<- []byte, errCh chan<- error) {
	defer close(out)
	for {
		payload, err := live.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				errCh <- err
			}
			return
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func sendOrDone(ctx context.Context, out chan<- Item, item Item) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func pageSizeOrDefault(n int) int {
	if n <= 0 {
		return 500
	}
	return n
}

// cursorFields mirrors the cursor-bearing JSON fields every record
// variant's EncodeJSON emits (internal/record's elemBase/messageBase/
// Transaction/Block tags): enough to reconstruct a Cursor without
// knowing the variant's full shape.
type cursorFields struct {
	Height       *uint64 `json:"height"`
	BlockHeight  *uint64 `json:"block_height"`
	TxIndex      *uint32 `json:"tx_index"`
	ElementIndex *uint32 `json:"element_index"`
	MessageIndex *uint32 `json:"message_index"`
}

// decodeLiveCursor recovers the ordering cursor from a republished
// packet's decoded JSON record so the join can compare it against the
// historical-drain head. Callers must record.Decode the raw envelope
// before calling this.
func decodeLiveCursor(payload []byte) (record.Cursor, error) {
	var f cursorFields
	if err := json.Unmarshal(payload, &f); err != nil {
		return record.Cursor{}, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "decode live event cursor")
	}
	cur := record.Cursor{}
	switch {
	case f.BlockHeight != nil:
		cur.BlockHeight = *f.BlockHeight
	case f.Height != nil:
		cur.BlockHeight = *f.Height
	}
	if f.TxIndex != nil {
		cur.TxIndex = f.TxIndex
	}
	if f.ElementIndex != nil {
		cur.ElementIndex = f.ElementIndex
	} else if f.MessageIndex != nil {
		cur.ElementIndex = f.MessageIndex
	}
	return cur, nil
}
