package wsgateway

import (
	"context"
	"encoding/json"
	"testing"

	"fuelstreams/internal/record"
)

type stubHistorical struct{}

func (stubHistorical) StreamBySubject(ctx context.Context, entityID string, filters map[string]string, namespace string, fromHeight uint64, pageSize int) (<-chan record.Row, <-chan error) {
	out := make(chan record.Row)
	errCh := make(chan error, 1)
	close(out)
	return out, errCh
}

func TestEntityIDFromPatternMatchesLongestPrefix(t *testing.T) {
	cases := map[string]string{
		"transactions.>":   "transactions",
		"inputs.coin.*.*":  "inputs.coin",
		"blocks.>":         "blocks",
	}
	for pattern, want := range cases {
		got, ok := entityIDFromPattern(pattern)
		if !ok || got != want {
			t.Errorf("entityIDFromPattern(%q) = %q, %v; want %q", pattern, got, ok, want)
		}
	}
}

func TestEntityIDFromPatternRejectsUnknown(t *testing.T) {
	if _, ok := entityIDFromPattern("not.a.real.entity"); ok {
		t.Fatal("expected no match for an unregistered entity")
	}
}

func TestDecodeDeliverPolicyLive(t *testing.T) {
	p, err := decodeDeliverPolicy(json.RawMessage(`"new"`))
	if err != nil || !p.Live {
		t.Fatalf("expected live policy, got %+v, err=%v", p, err)
	}
}

func TestDecodeDeliverPolicyFromBlock(t *testing.T) {
	p, err := decodeDeliverPolicy(json.RawMessage(`{"fromBlock":{"blockHeight":42}}`))
	if err != nil || p.Live || p.FromBlock != 42 {
		t.Fatalf("expected FromBlock(42), got %+v, err=%v", p, err)
	}
}

func TestDecodeDeliverPolicyRejectsMalformed(t *testing.T) {
	if _, err := decodeDeliverPolicy(json.RawMessage(`{"bogus":true}`)); err == nil {
		t.Fatal("expected an error for a malformed deliverPolicy")
	}
	if _, err := decodeDeliverPolicy(json.RawMessage(`"live"`)); err == nil {
		t.Fatal("expected an error for an unrecognized string policy")
	}
}

func TestLiveSubjectForRendersWildcardOnUnknownFields(t *testing.T) {
	got := liveSubjectFor("transactions", map[string]string{"tx_status": "success"})
	if got == "" {
		t.Fatal("expected a non-empty subject")
	}
}

func TestSubscriptionIDIsDeterministic(t *testing.T) {
	p := subscribePayload{Subject: "transactions.>", Params: map[string]string{"tx_status": "success"}, DeliverPolicy: json.RawMessage(`"new"`)}
	a := subscriptionID("key-1", p)
	b := subscriptionID("key-1", p)
	if a != b {
		t.Fatalf("expected identical payloads to hash to the same id, got %q and %q", a, b)
	}
}

func TestSubscriptionIDDiffersByKeyAndPayload(t *testing.T) {
	base := subscribePayload{Subject: "transactions.>", Params: map[string]string{}, DeliverPolicy: json.RawMessage(`"new"`)}
	other := subscribePayload{Subject: "blocks.>", Params: map[string]string{}, DeliverPolicy: json.RawMessage(`"new"`)}

	if subscriptionID("key-1", base) == subscriptionID("key-2", base) {
		t.Error("expected different api keys to produce different subscription ids")
	}
	if subscriptionID("key-1", base) == subscriptionID("key-1", other) {
		t.Error("expected different subjects to produce different subscription ids")
	}
}
