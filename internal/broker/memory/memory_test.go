package memory

import (
	"context"
	"testing"
	"time"

	"fuelstreams/internal/broker"
)

func TestPublishBlockAndReceive(t *testing.T) {
	b := New(broker.Namespace("ns"), 0)
	ctx := context.Background()

	if err := b.PublishBlock(ctx, "1", []byte("block-1")); err != nil {
		t.Fatalf("PublishBlock: %v", err)
	}

	stream, err := b.ReceiveBlocksStream(ctx, 1)
	if err != nil {
		t.Fatalf("ReceiveBlocksStream: %v", err)
	}
	defer stream.Close()

	msg, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(msg.Payload()) != "block-1" {
		t.Errorf("expected block-1, got %q", msg.Payload())
	}
	if err := msg.Ack(ctx); err != nil {
		t.Errorf("Ack: %v", err)
	}
}

func TestSubscribeToEventsMatchesPattern(t *testing.T) {
	b := New("", 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stream, err := b.SubscribeToEvents(ctx, "inputs.*")
	if err != nil {
		t.Fatalf("SubscribeToEvents: %v", err)
	}
	defer stream.Close()

	if err := b.PublishEvent(ctx, "outputs.coin", []byte("should-not-match")); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	if err := b.PublishEvent(ctx, "inputs.coin", []byte("payload")); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}

	payload, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(payload) != "payload" {
		t.Errorf("expected payload, got %q", payload)
	}
}

func TestSubscribeToEventsTailWildcard(t *testing.T) {
	b := New("", 0)
	ctx := context.Background()

	stream, err := b.SubscribeToEvents(ctx, "inputs.>")
	if err != nil {
		t.Fatalf("SubscribeToEvents: %v", err)
	}
	defer stream.Close()

	if err := b.PublishEvent(ctx, "inputs.coin", []byte("x")); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	if _, err := stream.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New("", 0)
	ctx := context.Background()

	stream, err := b.SubscribeToEvents(ctx, "inputs.>")
	if err != nil {
		t.Fatalf("SubscribeToEvents: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := stream.Next(shortCtx); err == nil {
		t.Fatal("expected Next to fail after Close")
	}
}
