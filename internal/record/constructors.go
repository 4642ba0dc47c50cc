package record

// Constructors for the input/output/receipt/utxo/predicate/message record
// family. elemBase and messageBase are unexported so that callers outside
// this package (the packet builder) cannot construct a cursor-bearing
// record with a hand-rolled or inconsistent embedded base; every variant
// goes through one of these functions instead.

func newElemBase(blockHeight uint64, txID string, txIndex, elemIndex uint32) elemBase {
	return elemBase{BlockHeight: blockHeight, TxID: txID, TxIndex: txIndex, ElemIndex: elemIndex}
}

func NewInputCoin(blockHeight uint64, txID string, txIndex, elemIndex uint32, owner, asset string, amount uint64, predicateBlob []byte) *InputCoin {
	return &InputCoin{
		elemBase:      newElemBase(blockHeight, txID, txIndex, elemIndex),
		Owner:         owner,
		Asset:         asset,
		Amount:        amount,
		PredicateBlob: predicateBlob,
	}
}

func NewInputContract(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract, utxoID string) *InputContract {
	return &InputContract{
		elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex),
		Contract: contract,
		UtxoID:   utxoID,
	}
}

func NewInputMessage(blockHeight uint64, txID string, txIndex, elemIndex uint32, sender, recipient, nonce string, amount uint64) *InputMessage {
	return &InputMessage{
		elemBase:  newElemBase(blockHeight, txID, txIndex, elemIndex),
		Sender:    sender,
		Recipient: recipient,
		Nonce:     nonce,
		Amount:    amount,
	}
}

func NewOutputCoin(blockHeight uint64, txID string, txIndex, elemIndex uint32, to, asset string, amount uint64) *OutputCoin {
	return &OutputCoin{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), To: to, Asset: asset, Amount: amount}
}

func NewOutputContract(blockHeight uint64, txID string, txIndex, elemIndex, inputIndex uint32) *OutputContract {
	return &OutputContract{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), InputIndex: inputIndex}
}

func NewOutputChange(blockHeight uint64, txID string, txIndex, elemIndex uint32, to, asset string, amount uint64) *OutputChange {
	return &OutputChange{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), To: to, Asset: asset, Amount: amount}
}

func NewOutputVariable(blockHeight uint64, txID string, txIndex, elemIndex uint32, to, asset string, amount uint64) *OutputVariable {
	return &OutputVariable{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), To: to, Asset: asset, Amount: amount}
}

func NewOutputContractCreated(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract string) *OutputContractCreated {
	return &OutputContractCreated{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Contract: contract}
}

func NewReceiptCall(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract string, amount, gas uint64) *ReceiptCall {
	return &ReceiptCall{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Contract: contract, Amount: amount, Gas: gas}
}

func NewReceiptReturn(blockHeight uint64, txID string, txIndex, elemIndex uint32, val uint64) *ReceiptReturn {
	return &ReceiptReturn{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Val: val}
}

func NewReceiptReturnData(blockHeight uint64, txID string, txIndex, elemIndex uint32, data []byte) *ReceiptReturnData {
	return &ReceiptReturnData{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Data: data}
}

func NewReceiptPanic(blockHeight uint64, txID string, txIndex, elemIndex uint32, reason uint64) *ReceiptPanic {
	return &ReceiptPanic{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Reason: reason}
}

func NewReceiptRevert(blockHeight uint64, txID string, txIndex, elemIndex uint32, reason uint64) *ReceiptRevert {
	return &ReceiptRevert{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Reason: reason}
}

func NewReceiptLog(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract string, val0, val1 uint64) *ReceiptLog {
	return &ReceiptLog{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Contract: contract, Val0: val0, Val1: val1}
}

func NewReceiptLogData(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract string, data []byte) *ReceiptLogData {
	return &ReceiptLogData{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Contract: contract, Data: data}
}

func NewReceiptTransfer(blockHeight uint64, txID string, txIndex, elemIndex uint32, to, asset string, amount uint64) *ReceiptTransfer {
	return &ReceiptTransfer{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), To: to, Asset: asset, Amount: amount}
}

func NewReceiptTransferOut(blockHeight uint64, txID string, txIndex, elemIndex uint32, to, asset string, amount uint64) *ReceiptTransferOut {
	return &ReceiptTransferOut{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), To: to, Asset: asset, Amount: amount}
}

func NewReceiptScriptResult(blockHeight uint64, txID string, txIndex, elemIndex uint32, result, gas uint64) *ReceiptScriptResult {
	return &ReceiptScriptResult{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Result: result, Gas: gas}
}

func NewReceiptMessageOut(blockHeight uint64, txID string, txIndex, elemIndex uint32, sender, recipient string, amount uint64, data []byte) *ReceiptMessageOut {
	return &ReceiptMessageOut{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Sender: sender, Recipient: recipient, Amount: amount, Data: data}
}

func NewReceiptMint(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract, asset string, amount uint64) *ReceiptMint {
	return &ReceiptMint{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Contract: contract, Asset: asset, Amount: amount}
}

func NewReceiptBurn(blockHeight uint64, txID string, txIndex, elemIndex uint32, contract, asset string, amount uint64) *ReceiptBurn {
	return &ReceiptBurn{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), Contract: contract, Asset: asset, Amount: amount}
}

func NewUtxoCoin(blockHeight uint64, txID string, txIndex, elemIndex uint32, utxoID, owner, asset string, amount uint64) *UtxoCoin {
	return &UtxoCoin{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), UtxoID: utxoID, Owner: owner, Asset: asset, Amount: amount}
}

func NewUtxoContract(blockHeight uint64, txID string, txIndex, elemIndex uint32, utxoID, contract string) *UtxoContract {
	return &UtxoContract{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), UtxoID: utxoID, Contract: contract}
}

func NewUtxoMessage(blockHeight uint64, txID string, txIndex, elemIndex uint32, utxoID, sender, recipient string) *UtxoMessage {
	return &UtxoMessage{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), UtxoID: utxoID, Sender: sender, Recipient: recipient}
}

func NewPredicate(blockHeight uint64, txID string, txIndex, elemIndex uint32, blobID string, bytecode []byte) *Predicate {
	return &Predicate{elemBase: newElemBase(blockHeight, txID, txIndex, elemIndex), BlobID: blobID, Bytecode: bytecode}
}

func NewMessageImported(blockHeight uint64, messageIndex uint32, sender, recipient, nonce string, amount uint64) *MessageImported {
	return &MessageImported{messageBase{BlockHeight: blockHeight, MessageIndex: messageIndex, Sender: sender, Recipient: recipient, Nonce: nonce, Amount: amount}}
}

func NewMessageConsumed(blockHeight uint64, messageIndex uint32, sender, recipient, nonce string, amount uint64) *MessageConsumed {
	return &MessageConsumed{messageBase{BlockHeight: blockHeight, MessageIndex: messageIndex, Sender: sender, Recipient: recipient, Nonce: nonce, Amount: amount}}
}
