package subscription

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fuelstreams/internal/broker"
	"fuelstreams/internal/broker/memory"
	"fuelstreams/internal/record"
)

type stubHistorical struct {
	rows []record.Row
}

func (s *stubHistorical) StreamBySubject(ctx context.Context, entityID string, filters map[string]string, namespace string, fromHeight uint64, pageSize int) (<-chan record.Row, <-chan error) {
	out := make(chan record.Row, len(s.rows))
	errCh := make(chan error, 1)
	for _, r := range s.rows {
		out <- r
	}
	close(out)
	return out, errCh
}

func rowAt(height uint64) record.Row {
	return record.Row{BlockHeight: height, Subject: "blocks.>", Value: envelopeAt(height)}
}

// envelopeAt builds a real record.Encode envelope, matching what
// packet.Build/record.EncodeRecord actually produce on the wire, so these
// tests exercise the same envelope/JSON distinction spec §4.2 requires.
func envelopeAt(height uint64) []byte {
	payload, _ := json.Marshal(map[string]uint64{"block_height": height})
	enc, err := record.Encode(payload, record.CompressionNone)
	if err != nil {
		panic(err)
	}
	return enc
}

func TestRunDrainsHistoricalThenSwitchesToLive(t *testing.T) {
	b := memory.New("ns", 0)
	hist := &stubHistorical{rows: []record.Row{rowAt(1), rowAt(2), rowAt(3)}}

	e := &Engine{Store: hist, Broker: b}
	out := make(chan Item, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, Params{EntityID: "blocks", LiveSubject: "ns.blocks.>", Policy: DeliverPolicy{FromBlock: 1}}, out) }()

	var got []Item
	for i := 0; i < 3; i++ {
		select {
		case item := <-out:
			got = append(got, item)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for historical item %d", i)
		}
	}
	if len(got) != 3 || got[0].Cursor.BlockHeight != 1 || got[2].Cursor.BlockHeight != 3 {
		t.Fatalf("unexpected historical items: %+v", got)
	}

	if err := b.PublishEvent(ctx, "ns.blocks.4", envelopeAt(4)); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}

	select {
	case item := <-out:
		if item.Cursor.BlockHeight != 4 {
			t.Fatalf("expected live item at height 4, got %+v", item)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live item")
	}

	cancel()
	<-done
}

func TestRunDropsLiveItemsAtOrBelowHistoricalHead(t *testing.T) {
	b := memory.New("ns", 0)
	hist := &stubHistorical{rows: []record.Row{rowAt(5)}}

	e := &Engine{Store: hist, Broker: b}
	out := make(chan Item, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.Run(ctx, Params{EntityID: "blocks", LiveSubject: "ns.blocks.>", Policy: DeliverPolicy{FromBlock: 1}}, out)

	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for historical item")
	}

	// Duplicate of the already-emitted historical head: must be dropped.
	if err := b.PublishEvent(ctx, "ns.blocks.5", envelopeAt(5)); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	if err := b.PublishEvent(ctx, "ns.blocks.6", envelopeAt(6)); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}

	select {
	case item := <-out:
		if item.Cursor.BlockHeight != 6 {
			t.Fatalf("expected height 6 (height 5 dropped as already seen), got %+v", item)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live item")
	}

	cancel()
}

func TestRunRejectsInvalidDeliverPolicy(t *testing.T) {
	b := memory.New("ns", 0)
	e := &Engine{Store: &stubHistorical{}, Broker: b}
	out := make(chan Item, 1)

	err := e.Run(context.Background(), Params{EntityID: "blocks", LiveSubject: "ns.blocks.>"}, out)
	if err == nil {
		t.Fatal("expected an error for an empty deliver policy")
	}
}

var _ broker.Broker = (*memory.Broker)(nil)
