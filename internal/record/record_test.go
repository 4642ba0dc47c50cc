package record

import (
	"testing"
	"time"
)

func TestCursorCompareAndEncode(t *testing.T) {
	a := TxCursor(5, 1)
	b := TxCursor(5, 2)
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	tok := a.Encode()
	got, err := DecodeCursor(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got.Compare(a) != 0 {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, a)
	}
}

func TestCursorOrderingAcrossHeights(t *testing.T) {
	low := BlockCursor(1)
	high := BlockCursor(2)
	if !low.Less(high) {
		t.Fatal("expected block 1 < block 2")
	}
}

func TestMessageCursorIsBlockScoped(t *testing.T) {
	m := MessageCursor(10, 3)
	if m.TxIndex != nil {
		t.Fatal("message cursor must not carry a tx_index component")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := []byte(`{"height":42}`)
	for _, mode := range []CompressionMode{CompressionNone, CompressionZstd} {
		enc, err := Encode(payload, mode)
		if err != nil {
			t.Fatal(err)
		}
		dec, err := Decode(enc)
		if err != nil {
			t.Fatal(err)
		}
		if string(dec) != string(payload) {
			t.Fatalf("mode %v: round trip mismatch: got %s", mode, dec)
		}
	}
}

func TestEncodeRecordAndToRow(t *testing.T) {
	blk := &Block{Height: 42, Producer: "0xabc", Hash: "0xdead", TxCount: 1, Timestamp: 1000}
	raw, err := EncodeRecord(blk, CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) == "" {
		t.Fatal("expected decoded payload")
	}

	row, err := ToRow(blk, "blocks.42.0xabc", time.Unix(1000, 0), map[string]string{"producer_address": "0xabc"})
	if err != nil {
		t.Fatal(err)
	}
	if row.BlockHeight != 42 || row.Subject != "blocks.42.0xabc" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.TxIndex != nil || row.ElementIndex != nil {
		t.Fatal("block row must not carry tx/element index")
	}
}

func TestTableNameMapping(t *testing.T) {
	cases := map[string]string{
		"blocks":         "blocks",
		"inputs.coin":    "inputs",
		"receipts.mint":  "receipts",
		"utxos.message":  "utxos",
		"predicates":     "predicates",
		"messages.consumed": "messages",
	}
	for tag, want := range cases {
		got, ok := TableName(tag)
		if !ok || got != want {
			t.Errorf("TableName(%q) = (%q, %v), want %q", tag, got, ok, want)
		}
	}
	if _, ok := TableName("unknown.tag"); ok {
		t.Fatal("expected unknown tag to fail")
	}
}
