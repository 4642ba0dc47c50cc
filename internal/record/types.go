package record

import "fuelstreams/internal/subject"

// Block is the per-height container record (spec §3.1).
type Block struct {
	Height    uint64    `json:"height"`
	Producer  string    `json:"producer"`
	Hash      string    `json:"hash"`
	TxCount   int       `json:"tx_count"`
	Timestamp int64     `json:"timestamp"`
}

func (b *Block) EntityTag() string          { return subject.IDBlocks }
func (b *Block) Cursor() Cursor             { return BlockCursor(b.Height) }
func (b *Block) EncodeJSON() ([]byte, error) { return encodeJSON(b) }

// Transaction is the per-tx record (spec §3.1).
type Transaction struct {
	BlockHeight uint64 `json:"block_height"`
	TxIndex     uint32 `json:"tx_index"`
	TxID        string `json:"tx_id"`
	Status      string `json:"status"`
	Kind        string `json:"kind"`
	BlobID      string `json:"blob_id,omitempty"`
}

func (t *Transaction) EntityTag() string          { return subject.IDTransactions }
func (t *Transaction) Cursor() Cursor             { return TxCursor(t.BlockHeight, t.TxIndex) }
func (t *Transaction) EncodeJSON() ([]byte, error) { return encodeJSON(t) }

// elemBase is embedded by every input/output/receipt/utxo variant: the
// three-tuple cursor components shared across the family.
type elemBase struct {
	BlockHeight uint64 `json:"block_height"`
	TxID        string `json:"tx_id"`
	TxIndex     uint32 `json:"tx_index"`
	ElemIndex   uint32 `json:"element_index"`
}

func (e elemBase) Cursor() Cursor { return ElemCursor(e.BlockHeight, e.TxIndex, e.ElemIndex) }

// --- Inputs -----------------------------------------------------------

type InputCoin struct {
	elemBase
	Owner         string `json:"owner"`
	Asset         string `json:"asset"`
	Amount        uint64 `json:"amount"`
	PredicateBlob []byte `json:"predicate,omitempty"`
}

func (i *InputCoin) EntityTag() string          { return subject.IDInputsCoin }
func (i *InputCoin) EncodeJSON() ([]byte, error) { return encodeJSON(i) }

type InputContract struct {
	elemBase
	Contract string `json:"contract"`
	UtxoID   string `json:"utxo_id"`
}

func (i *InputContract) EntityTag() string          { return subject.IDInputsContract }
func (i *InputContract) EncodeJSON() ([]byte, error) { return encodeJSON(i) }

type InputMessage struct {
	elemBase
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Nonce     string `json:"nonce"`
	Amount    uint64 `json:"amount"`
}

func (i *InputMessage) EntityTag() string          { return subject.IDInputsMessage }
func (i *InputMessage) EncodeJSON() ([]byte, error) { return encodeJSON(i) }

// --- Outputs ------------------------------------------------------------

type OutputCoin struct {
	elemBase
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (o *OutputCoin) EntityTag() string          { return subject.IDOutputsCoin }
func (o *OutputCoin) EncodeJSON() ([]byte, error) { return encodeJSON(o) }

type OutputContract struct {
	elemBase
	InputIndex uint32 `json:"input_index"`
}

func (o *OutputContract) EntityTag() string          { return subject.IDOutputsContract }
func (o *OutputContract) EncodeJSON() ([]byte, error) { return encodeJSON(o) }

type OutputChange struct {
	elemBase
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (o *OutputChange) EntityTag() string          { return subject.IDOutputsChange }
func (o *OutputChange) EncodeJSON() ([]byte, error) { return encodeJSON(o) }

type OutputVariable struct {
	elemBase
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (o *OutputVariable) EntityTag() string          { return subject.IDOutputsVariable }
func (o *OutputVariable) EncodeJSON() ([]byte, error) { return encodeJSON(o) }

type OutputContractCreated struct {
	elemBase
	Contract string `json:"contract"`
}

func (o *OutputContractCreated) EntityTag() string          { return subject.IDOutputsContractCreated }
func (o *OutputContractCreated) EncodeJSON() ([]byte, error) { return encodeJSON(o) }

// --- Receipts -------------------------------------------------------------

type ReceiptCall struct {
	elemBase
	Contract string `json:"contract"`
	Amount   uint64 `json:"amount"`
	Gas      uint64 `json:"gas"`
}

func (r *ReceiptCall) EntityTag() string          { return subject.IDReceiptsCall }
func (r *ReceiptCall) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptReturn struct {
	elemBase
	Val uint64 `json:"val"`
}

func (r *ReceiptReturn) EntityTag() string          { return subject.IDReceiptsReturn }
func (r *ReceiptReturn) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptReturnData struct {
	elemBase
	Data []byte `json:"data"`
}

func (r *ReceiptReturnData) EntityTag() string          { return subject.IDReceiptsReturnData }
func (r *ReceiptReturnData) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptPanic struct {
	elemBase
	Reason uint64 `json:"reason"`
}

func (r *ReceiptPanic) EntityTag() string          { return subject.IDReceiptsPanic }
func (r *ReceiptPanic) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptRevert struct {
	elemBase
	Reason uint64 `json:"reason"`
}

func (r *ReceiptRevert) EntityTag() string          { return subject.IDReceiptsRevert }
func (r *ReceiptRevert) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptLog struct {
	elemBase
	Contract string `json:"contract"`
	Val0     uint64 `json:"val0"`
	Val1     uint64 `json:"val1"`
}

func (r *ReceiptLog) EntityTag() string          { return subject.IDReceiptsLog }
func (r *ReceiptLog) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptLogData struct {
	elemBase
	Contract string `json:"contract"`
	Data     []byte `json:"data"`
}

func (r *ReceiptLogData) EntityTag() string          { return subject.IDReceiptsLogData }
func (r *ReceiptLogData) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptTransfer struct {
	elemBase
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (r *ReceiptTransfer) EntityTag() string          { return subject.IDReceiptsTransfer }
func (r *ReceiptTransfer) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptTransferOut struct {
	elemBase
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (r *ReceiptTransferOut) EntityTag() string          { return subject.IDReceiptsTransferOut }
func (r *ReceiptTransferOut) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptScriptResult struct {
	elemBase
	Result uint64 `json:"result"`
	Gas    uint64 `json:"gas_used"`
}

func (r *ReceiptScriptResult) EntityTag() string          { return subject.IDReceiptsScriptResult }
func (r *ReceiptScriptResult) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptMessageOut struct {
	elemBase
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Data      []byte `json:"data,omitempty"`
}

func (r *ReceiptMessageOut) EntityTag() string          { return subject.IDReceiptsMessageOut }
func (r *ReceiptMessageOut) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptMint struct {
	elemBase
	Contract string `json:"contract"`
	Asset    string `json:"asset"`
	Amount   uint64 `json:"amount"`
}

func (r *ReceiptMint) EntityTag() string          { return subject.IDReceiptsMint }
func (r *ReceiptMint) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

type ReceiptBurn struct {
	elemBase
	Contract string `json:"contract"`
	Asset    string `json:"asset"`
	Amount   uint64 `json:"amount"`
}

func (r *ReceiptBurn) EntityTag() string          { return subject.IDReceiptsBurn }
func (r *ReceiptBurn) EncodeJSON() ([]byte, error) { return encodeJSON(r) }

// --- Utxos ----------------------------------------------------------------

type UtxoCoin struct {
	elemBase
	UtxoID string `json:"utxo_id"`
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (u *UtxoCoin) EntityTag() string          { return subject.IDUtxosCoin }
func (u *UtxoCoin) EncodeJSON() ([]byte, error) { return encodeJSON(u) }

type UtxoContract struct {
	elemBase
	UtxoID   string `json:"utxo_id"`
	Contract string `json:"contract"`
}

func (u *UtxoContract) EntityTag() string          { return subject.IDUtxosContract }
func (u *UtxoContract) EncodeJSON() ([]byte, error) { return encodeJSON(u) }

type UtxoMessage struct {
	elemBase
	UtxoID    string `json:"utxo_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

func (u *UtxoMessage) EntityTag() string          { return subject.IDUtxosMessage }
func (u *UtxoMessage) EncodeJSON() ([]byte, error) { return encodeJSON(u) }

// --- Predicate --------------------------------------------------------------

// Predicate is emitted for a Coin input whose attached predicate bytecode's
// blob-id parses (spec §4.3 step 2).
type Predicate struct {
	elemBase
	BlobID   string `json:"blob_id"`
	Bytecode []byte `json:"bytecode"`
}

func (p *Predicate) EntityTag() string          { return subject.IDPredicates }
func (p *Predicate) EncodeJSON() ([]byte, error) { return encodeJSON(p) }

// --- Messages ---------------------------------------------------------------

// messageBase is block-scoped per the Open Question decision recorded in
// SPEC_FULL.md §4: message cursors never carry a tx_index.
type messageBase struct {
	BlockHeight  uint64 `json:"block_height"`
	MessageIndex uint32 `json:"message_index"`
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Nonce        string `json:"nonce"`
	Amount       uint64 `json:"amount"`
}

func (m messageBase) Cursor() Cursor { return MessageCursor(m.BlockHeight, m.MessageIndex) }

type MessageImported struct{ messageBase }

func (m *MessageImported) EntityTag() string          { return subject.IDMessagesImported }
func (m *MessageImported) EncodeJSON() ([]byte, error) { return encodeJSON(m) }

type MessageConsumed struct{ messageBase }

func (m *MessageConsumed) EntityTag() string          { return subject.IDMessagesConsumed }
func (m *MessageConsumed) EncodeJSON() ([]byte, error) { return encodeJSON(m) }
