package record

import (
	"encoding/json"
	"time"

	"fuelstreams/internal/errs"
	"fuelstreams/internal/subject"
)

// Version is the canonical encoding version stamped into every envelope
// (spec §4.2: "versioned by a record_version constant").
const Version byte = 1

// Record is the capability set every variant implements: its entity tag,
// its cursor, and its canonical JSON encoding. Projection to a row is the
// package-level ToRow; the variants have no decode or from-row method, so
// a stored value is not turned back into a typed variant here. Dispatch
// at ingestion is by EntityTag, decoded from the subject's id segment.
type Record interface {
	EntityTag() string
	Cursor() Cursor
	EncodeJSON() ([]byte, error)
}

// Row is the deterministic projection of a Record to a relational row
// (spec §4.2, §6.2): cursor components, subject string, encoded value,
// denormalized filter columns, and timestamps. One Go type spans every
// entity table; the table name is carried alongside (see TableName).
type Row struct {
	EntityTag    string
	BlockHeight  uint64
	TxIndex      *uint32
	ElementIndex *uint32
	Subject      string
	Value        []byte
	BlockTime    time.Time
	CreatedAt    time.Time
	Filters      map[string]string
}

// TableName maps an entity tag to its relational table (spec §6.2). Input
// and utxo variants share one table per family the way the spec's row
// shape does ("inputs(... input_type ...)").
func TableName(entityTag string) (string, bool) {
	switch entityTag {
	case subject.IDBlocks:
		return "blocks", true
	case subject.IDTransactions:
		return "transactions", true
	case subject.IDInputsCoin, subject.IDInputsContract, subject.IDInputsMessage:
		return "inputs", true
	case subject.IDOutputsCoin, subject.IDOutputsContract, subject.IDOutputsChange,
		subject.IDOutputsVariable, subject.IDOutputsContractCreated:
		return "outputs", true
	case subject.IDReceiptsCall, subject.IDReceiptsReturn, subject.IDReceiptsReturnData,
		subject.IDReceiptsPanic, subject.IDReceiptsRevert, subject.IDReceiptsLog,
		subject.IDReceiptsLogData, subject.IDReceiptsTransfer, subject.IDReceiptsTransferOut,
		subject.IDReceiptsScriptResult, subject.IDReceiptsMessageOut, subject.IDReceiptsMint,
		subject.IDReceiptsBurn:
		return "receipts", true
	case subject.IDUtxosCoin, subject.IDUtxosContract, subject.IDUtxosMessage:
		return "utxos", true
	case subject.IDPredicates:
		return "predicates", true
	case subject.IDMessagesImported, subject.IDMessagesConsumed:
		return "messages", true
	default:
		return "", false
	}
}

// ToRow projects any Record to its Row, encoding r as the canonical JSON
// value and deriving the subject string supplied by the caller (the
// packet builder is the only place that knows the fully instantiated
// subject; record.Row never guesses it). subjectStr must decode, per
// invariant I3, to the same entity variant as r -- callers that get this
// from mismatched input should use SubjectMismatch.
func ToRow(r Record, subjectStr string, blockTime time.Time, filters map[string]string) (Row, error) {
	value, err := r.EncodeJSON()
	if err != nil {
		return Row{}, errs.Wrap(errs.KindCodec, errs.ReasonEncode, err, "encode record value")
	}
	c := r.Cursor()
	return Row{
		EntityTag:    r.EntityTag(),
		BlockHeight:  c.BlockHeight,
		TxIndex:      c.TxIndex,
		ElementIndex: c.ElementIndex,
		Subject:      subjectStr,
		Value:        value,
		BlockTime:    blockTime,
		CreatedAt:    blockTime,
		Filters:      filters,
	}, nil
}

// encodeJSON is a small helper every variant's EncodeJSON delegates to.
func encodeJSON(v any) ([]byte, error) { return json.Marshal(v) }
