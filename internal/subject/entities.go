package subject

// Entity ids, one per record variant family (spec §3.1). These double as
// the Definition.ID and as the record.EntityTag decoded from a subject's
// leading segment (spec §9 "dispatch at ingestion is by entity_tag decoded
// from the subject's id segment").
const (
	IDBlocks   = "blocks"
	IDTransactions = "transactions"

	IDInputsCoin     = "inputs.coin"
	IDInputsContract = "inputs.contract"
	IDInputsMessage  = "inputs.message"

	IDOutputsCoin            = "outputs.coin"
	IDOutputsContract        = "outputs.contract"
	IDOutputsChange          = "outputs.change"
	IDOutputsVariable        = "outputs.variable"
	IDOutputsContractCreated = "outputs.contract_created"

	IDReceiptsCall         = "receipts.call"
	IDReceiptsReturn       = "receipts.return"
	IDReceiptsReturnData   = "receipts.return_data"
	IDReceiptsPanic        = "receipts.panic"
	IDReceiptsRevert       = "receipts.revert"
	IDReceiptsLog          = "receipts.log"
	IDReceiptsLogData      = "receipts.log_data"
	IDReceiptsTransfer     = "receipts.transfer"
	IDReceiptsTransferOut  = "receipts.transfer_out"
	IDReceiptsScriptResult = "receipts.script_result"
	IDReceiptsMessageOut   = "receipts.message_out"
	IDReceiptsMint         = "receipts.mint"
	IDReceiptsBurn         = "receipts.burn"

	IDUtxosCoin     = "utxos.coin"
	IDUtxosContract = "utxos.contract"
	IDUtxosMessage  = "utxos.message"

	IDPredicates = "predicates"

	IDMessagesImported = "messages.imported"
	IDMessagesConsumed = "messages.consumed"
)

func field(name, column string) FieldSpec { return FieldSpec{Name: name, Column: column} }

// blockCursorFields / txCursorFields / elemCursorFields are the leading
// cursor-component fields shared by every subject space (cursor §3.1).
func blockCursorFields() []FieldSpec {
	return []FieldSpec{field("block_height", "block_height")}
}

func txCursorFields() []FieldSpec {
	return append(blockCursorFields(), field("tx_id", "tx_id"), field("tx_index", "tx_index"))
}

func elemCursorFields(indexCol string) []FieldSpec {
	return append(txCursorFields(), field("element_index", indexCol))
}

func receiptFields() []FieldSpec { return elemCursorFields("receipt_index") }

var (
	DefBlocks = Register(&Definition{
		ID: IDBlocks,
		Fields: []FieldSpec{
			field("block_height", "block_height"),
			field("producer", "producer_address"),
		},
	})

	DefTransactions = Register(&Definition{
		ID: IDTransactions,
		Fields: []FieldSpec{
			field("block_height", "block_height"),
			field("tx_index", "tx_index"),
			field("tx_id", "tx_id"),
			field("tx_status", "tx_status"),
			field("tx_type", "tx_type"),
		},
	})

	DefInputsCoin = Register(&Definition{
		ID: IDInputsCoin,
		Fields: append(elemCursorFields("input_index"),
			field("owner", "owner_id"),
			field("asset", "asset_id"),
		),
	})

	DefInputsContract = Register(&Definition{
		ID: IDInputsContract,
		Fields: append(elemCursorFields("input_index"),
			field("contract", "contract_id"),
		),
	})

	DefInputsMessage = Register(&Definition{
		ID: IDInputsMessage,
		Fields: append(elemCursorFields("input_index"),
			field("sender", "sender_address"),
			field("recipient", "recipient_address"),
		),
	})

	DefOutputsCoin = Register(&Definition{
		ID: IDOutputsCoin,
		Fields: append(elemCursorFields("output_index"),
			field("to", "to_address"),
			field("asset", "asset_id"),
		),
	})

	DefOutputsContract = Register(&Definition{
		ID:     IDOutputsContract,
		Fields: elemCursorFields("output_index"),
	})

	DefOutputsChange = Register(&Definition{
		ID: IDOutputsChange,
		Fields: append(elemCursorFields("output_index"),
			field("to", "to_address"),
			field("asset", "asset_id"),
		),
	})

	DefOutputsVariable = Register(&Definition{
		ID: IDOutputsVariable,
		Fields: append(elemCursorFields("output_index"),
			field("to", "to_address"),
			field("asset", "asset_id"),
		),
	})

	DefOutputsContractCreated = Register(&Definition{
		ID: IDOutputsContractCreated,
		Fields: append(elemCursorFields("output_index"),
			field("contract", "contract_id"),
		),
	})

	DefReceiptsCall         = Register(&Definition{ID: IDReceiptsCall, Fields: append(receiptFields(), field("contract", "contract_id"))})
	DefReceiptsReturn       = Register(&Definition{ID: IDReceiptsReturn, Fields: receiptFields()})
	DefReceiptsReturnData   = Register(&Definition{ID: IDReceiptsReturnData, Fields: receiptFields()})
	DefReceiptsPanic        = Register(&Definition{ID: IDReceiptsPanic, Fields: receiptFields()})
	DefReceiptsRevert       = Register(&Definition{ID: IDReceiptsRevert, Fields: receiptFields()})
	DefReceiptsLog          = Register(&Definition{ID: IDReceiptsLog, Fields: append(receiptFields(), field("contract", "contract_id"))})
	DefReceiptsLogData      = Register(&Definition{ID: IDReceiptsLogData, Fields: append(receiptFields(), field("contract", "contract_id"))})
	DefReceiptsTransfer     = Register(&Definition{ID: IDReceiptsTransfer, Fields: append(receiptFields(), field("to", "to_address"), field("asset", "asset_id"))})
	DefReceiptsTransferOut  = Register(&Definition{ID: IDReceiptsTransferOut, Fields: append(receiptFields(), field("to", "to_address"), field("asset", "asset_id"))})
	DefReceiptsScriptResult = Register(&Definition{ID: IDReceiptsScriptResult, Fields: receiptFields()})
	DefReceiptsMessageOut   = Register(&Definition{ID: IDReceiptsMessageOut, Fields: append(receiptFields(), field("sender", "sender_address"), field("recipient", "recipient_address"))})
	DefReceiptsMint         = Register(&Definition{ID: IDReceiptsMint, Fields: append(receiptFields(), field("contract", "contract_id"), field("asset", "asset_id"))})
	DefReceiptsBurn         = Register(&Definition{ID: IDReceiptsBurn, Fields: append(receiptFields(), field("contract", "contract_id"), field("asset", "asset_id"))})

	DefUtxosCoin = Register(&Definition{
		ID: IDUtxosCoin,
		Fields: append(elemCursorFields("input_index"),
			field("owner", "owner_id"),
			field("asset", "asset_id"),
		),
	})

	DefUtxosContract = Register(&Definition{
		ID:     IDUtxosContract,
		Fields: append(elemCursorFields("input_index"), field("contract", "contract_id")),
	})

	DefUtxosMessage = Register(&Definition{
		ID: IDUtxosMessage,
		Fields: append(elemCursorFields("input_index"),
			field("sender", "sender_address"),
			field("recipient", "recipient_address"),
		),
	})

	DefPredicates = Register(&Definition{
		ID: IDPredicates,
		Fields: append(elemCursorFields("input_index"),
			field("blob_id", "blob_id"),
		),
	})

	DefMessagesImported = Register(&Definition{
		ID: IDMessagesImported,
		Fields: []FieldSpec{
			field("block_height", "block_height"),
			field("message_index", "message_index"),
			field("sender", "sender_address"),
			field("recipient", "recipient_address"),
		},
	})

	DefMessagesConsumed = Register(&Definition{
		ID: IDMessagesConsumed,
		Fields: []FieldSpec{
			field("block_height", "block_height"),
			field("message_index", "message_index"),
			field("sender", "sender_address"),
			field("recipient", "recipient_address"),
		},
	})
)

// AllIDs returns every registered entity id, for code that iterates the
// full subject space (e.g. store migrations, broker setup).
func AllIDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
