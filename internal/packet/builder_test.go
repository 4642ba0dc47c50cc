package packet

import (
	"reflect"
	"testing"

	"fuelstreams/internal/record"
)

func oneTxOneCoinBlock() BlockPayload {
	return BlockPayload{
		Height:    42,
		Producer:  "producer-a",
		Hash:      "0xblockhash",
		Timestamp: 1000,
		Transactions: []TxPayload{
			{
				ID:     "0xtx1",
				Status: "success",
				Kind:   "script",
				Inputs: []InputPayload{
					{Kind: "coin", Owner: "owner-1", Asset: "asset-1", Amount: 10, UtxoID: "utxo-1"},
				},
				Outputs: []OutputPayload{
					{Kind: "coin", To: "to-1", Asset: "asset-1", Amount: 9},
				},
			},
		},
	}
}

// S1: 1 tx, 1 coin input (no predicate), 1 coin output -> blocks,
// transactions, inputs.coin, utxos.coin, outputs.coin: 5 packets.
func TestBuildScenarioS1(t *testing.T) {
	p := oneTxOneCoinBlock()

	pkts, err := Build(p, "ns", record.CompressionNone, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(pkts) != 5 {
		t.Fatalf("expected 5 packets, got %d", len(pkts))
	}

	wantEntities := []string{
		"blocks",
		"transactions",
		"inputs.coin",
		"utxos.coin",
		"outputs.coin",
	}
	for i, want := range wantEntities {
		if pkts[i].SubjectPayload != want {
			t.Errorf("packet %d: got entity %q, want %q", i, pkts[i].SubjectPayload, want)
		}
	}

	for _, pkt := range pkts {
		if pkt.Namespace != "ns" {
			t.Errorf("packet %s: namespace = %q, want ns", pkt.SubjectPayload, pkt.Namespace)
		}
		if len(pkt.Value) == 0 {
			t.Errorf("packet %s: empty value", pkt.SubjectPayload)
		}
	}
}

func TestBuildWithPredicateAddsPredicatePacket(t *testing.T) {
	p := oneTxOneCoinBlock()
	p.Transactions[0].Inputs[0].PredicateBlob = []byte("predicate-bytecode")

	pkts, err := Build(p, "", record.CompressionZstd, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(pkts) != 6 {
		t.Fatalf("expected 6 packets with predicate, got %d", len(pkts))
	}
	if pkts[4].SubjectPayload != "predicates" {
		t.Fatalf("expected predicates packet at index 4, got %q", pkts[4].SubjectPayload)
	}
}

// P2: Build is deterministic regardless of worker-pool width.
func TestBuildDeterministicAcrossWorkerCounts(t *testing.T) {
	p := BlockPayload{
		Height:    7,
		Producer:  "p",
		Hash:      "h",
		Timestamp: 500,
	}
	for i := 0; i < 8; i++ {
		p.Transactions = append(p.Transactions, TxPayload{
			ID:     "tx" + string(rune('a'+i)),
			Status: "success",
			Kind:   "script",
			Inputs: []InputPayload{{Kind: "coin", Owner: "o", Asset: "a", Amount: uint64(i)}},
			Outputs: []OutputPayload{
				{Kind: "coin", To: "t", Asset: "a", Amount: uint64(i)},
			},
		})
	}

	base, err := Build(p, "ns", record.CompressionNone, 1)
	if err != nil {
		t.Fatalf("Build (1 worker): %v", err)
	}

	for _, workers := range []int{2, 4, 8, 0} {
		got, err := Build(p, "ns", record.CompressionNone, workers)
		if err != nil {
			t.Fatalf("Build (%d workers): %v", workers, err)
		}
		if len(got) != len(base) {
			t.Fatalf("workers=%d: got %d packets, want %d", workers, len(got), len(base))
		}
		for i := range base {
			if got[i].Subject != base[i].Subject {
				t.Errorf("workers=%d packet %d: subject %q != %q", workers, i, got[i].Subject, base[i].Subject)
			}
			if !reflect.DeepEqual(got[i].Value, base[i].Value) {
				t.Errorf("workers=%d packet %d: value mismatch", workers, i)
			}
			if got[i].Cursor.Compare(base[i].Cursor) != 0 {
				t.Errorf("workers=%d packet %d: cursor mismatch", workers, i)
			}
		}
	}
}

func TestBuildBlockLevelMessages(t *testing.T) {
	p := BlockPayload{
		Height:    1,
		Producer:  "p",
		Hash:      "h",
		Timestamp: 100,
		Messages: []MessagePayload{
			{Kind: "imported", Sender: "s1", Recipient: "r1", Amount: 5},
			{Kind: "consumed", Sender: "s2", Recipient: "r2", Amount: 6},
		},
	}

	pkts, err := Build(p, "", record.CompressionNone, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(pkts) != 3 {
		t.Fatalf("expected 3 packets (block + 2 messages), got %d", len(pkts))
	}
	if pkts[1].SubjectPayload != "messages.imported" || pkts[2].SubjectPayload != "messages.consumed" {
		t.Fatalf("unexpected message entity order: %q, %q", pkts[1].SubjectPayload, pkts[2].SubjectPayload)
	}
	if pkts[1].Cursor.TxIndex != nil || pkts[2].Cursor.TxIndex != nil {
		t.Fatalf("message cursors must be block-scoped (nil tx_index)")
	}
}

func TestBuildUnknownInputKindFails(t *testing.T) {
	p := oneTxOneCoinBlock()
	p.Transactions[0].Inputs[0].Kind = "bogus"

	if _, err := Build(p, "", record.CompressionNone, 0); err == nil {
		t.Fatal("expected error for unknown input kind")
	}
}
