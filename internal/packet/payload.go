// Package packet implements the pure, parallel decomposition of a block
// payload into the deterministic multiset of packets described by spec
// §4.3: one blocks packet, one transactions packet per tx, input/utxo/
// predicate packets per input, output packets per output, receipt packets
// per receipt, and block-scoped message packets.
//
// BlockPayload models what the (externally owned) node driver hands the
// executor -- spec §1 treats the node as an external collaborator, so this
// is a minimal, packetization-oriented shape, not a full chain type.
package packet

// BlockPayload is one block as received from the node.
type BlockPayload struct {
	Height       uint64
	Producer     string
	Hash         string
	Timestamp    int64
	Transactions []TxPayload
	Messages     []MessagePayload // block-level messages (imported/consumed)
}

// TxPayload is one transaction within a block.
type TxPayload struct {
	ID       string
	Status   string // "success" | "failure" | "submitted" | "squeezedout"
	Kind     string // "script" | "create" | "mint" | "upgrade" | "upload" | "blob"
	BlobID   string
	Inputs   []InputPayload
	Outputs  []OutputPayload
	Receipts []ReceiptPayload
}

// InputPayload carries every field any input kind might need; Kind
// selects which subset is meaningful (the node's wire format is itself a
// tagged union -- this mirrors that at the boundary).
type InputPayload struct {
	Kind          string // "coin" | "contract" | "message"
	Owner         string
	Asset         string
	Contract      string
	Sender        string
	Recipient     string
	Nonce         string
	UtxoID        string
	Amount        uint64
	PredicateBlob []byte // present only for Coin inputs with an attached predicate
	PredicateID   string // blob-id parsed from PredicateBlob, if any
}

// OutputPayload carries every field any output kind might need.
type OutputPayload struct {
	Kind       string // "coin"|"contract"|"change"|"variable"|"contract_created"
	To         string
	Asset      string
	Contract   string
	Amount     uint64
	InputIndex uint32 // contract outputs reference the spent contract input
}

// ReceiptPayload carries every field any receipt kind might need.
type ReceiptPayload struct {
	Kind      string
	Contract  string
	To        string
	Asset     string
	Sender    string
	Recipient string
	Amount    uint64
	Gas       uint64
	Val       uint64
	Val0      uint64
	Val1      uint64
	Reason    uint64
	Result    uint64
	Data      []byte
}

// MessagePayload is a block-level message event.
type MessagePayload struct {
	Kind      string // "imported" | "consumed"
	Sender    string
	Recipient string
	Nonce     string
	Amount    uint64
}
