package packet

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"fuelstreams/internal/errs"
	"fuelstreams/internal/record"
	"fuelstreams/internal/subject"
)

// Build decomposes a block payload into the exact ordered multiset of
// packets defined by spec §4.3: one blocks packet, then per transaction
// (in index order) the transaction packet followed by its inputs/utxos/
// predicates, outputs, and receipts, then the block's message packets.
// The builder is pure and deterministic: two invocations on the same
// payload produce byte-identical packets regardless of goroutine
// scheduling (spec P2), even though per-transaction work runs across a
// bounded worker pool (spec §4.3, §5).
func Build(p BlockPayload, namespace string, compression record.CompressionMode, maxWorkers int) ([]Packet, error) {
	out := make([]Packet, 0, 1+estimateCount(p))

	blockPkt, err := buildBlockPacket(p, namespace, compression)
	if err != nil {
		return nil, err
	}
	out = append(out, blockPkt)

	txPacketSets := make([][]Packet, len(p.Transactions))
	if err := parallelFor(len(p.Transactions), maxWorkers, func(i int) error {
		pkts, err := buildTxPackets(p, i, namespace, compression)
		if err != nil {
			return err
		}
		txPacketSets[i] = pkts
		return nil
	}); err != nil {
		return nil, err
	}
	for _, pkts := range txPacketSets {
		out = append(out, pkts...)
	}

	msgPkts, err := buildMessagePackets(p, namespace, compression)
	if err != nil {
		return nil, err
	}
	out = append(out, msgPkts...)

	return out, nil
}

func estimateCount(p BlockPayload) int {
	n := len(p.Transactions) + len(p.Messages)
	for _, tx := range p.Transactions {
		n += len(tx.Inputs)*2 + len(tx.Outputs) + len(tx.Receipts)
	}
	return n
}

func makePacket(entityID string, fields map[string]string, cur record.Cursor, rec record.Record, blockTime int64, namespace string, compression record.CompressionMode) (Packet, error) {
	inst, err := subject.New(entityID, fields)
	if err != nil {
		return Packet{}, err
	}
	if !inst.IsLivePublishable() {
		return Packet{}, errs.SubjectMismatch("subject not fully instantiated for packet " + entityID)
	}
	encoded, err := record.EncodeRecord(rec, compression)
	if err != nil {
		return Packet{}, err
	}
	return Packet{
		Subject:        NamespacedSubject(namespace, inst.Parse()),
		SubjectPayload: entityID,
		Cursor:         cur,
		Value:          encoded,
		BlockTimestamp: blockTime,
		Namespace:      namespace,
		Filters:        inst.ColumnValues(),
	}, nil
}

func buildBlockPacket(p BlockPayload, namespace string, compression record.CompressionMode) (Packet, error) {
	rec := &record.Block{
		Height:    p.Height,
		Producer:  p.Producer,
		Hash:      p.Hash,
		TxCount:   len(p.Transactions),
		Timestamp: p.Timestamp,
	}
	fields := map[string]string{
		"block_height": strconv.FormatUint(p.Height, 10),
		"producer":     p.Producer,
	}
	return makePacket(subject.IDBlocks, fields, rec.Cursor(), rec, p.Timestamp, namespace, compression)
}

func buildTxPackets(p BlockPayload, txIndex int, namespace string, compression record.CompressionMode) ([]Packet, error) {
	tx := p.Transactions[txIndex]
	height := p.Height
	pkts := make([]Packet, 0, 1+len(tx.Inputs)*2+len(tx.Outputs)+len(tx.Receipts))

	txRec := &record.Transaction{
		BlockHeight: height,
		TxIndex:     uint32(txIndex),
		TxID:        tx.ID,
		Status:      tx.Status,
		Kind:        tx.Kind,
		BlobID:      tx.BlobID,
	}
	txPkt, err := makePacket(subject.IDTransactions, map[string]string{
		"block_height": strconv.FormatUint(height, 10),
		"tx_index":     strconv.Itoa(txIndex),
		"tx_id":        tx.ID,
		"tx_status":    tx.Status,
		"tx_type":      tx.Kind,
	}, txRec.Cursor(), txRec, p.Timestamp, namespace, compression)
	if err != nil {
		return nil, buildErr(txIndex, -1, err.Error())
	}
	pkts = append(pkts, txPkt)

	for j, in := range tx.Inputs {
		inputPkts, err := buildInputPackets(height, tx.ID, txIndex, j, in, p.Timestamp, namespace, compression)
		if err != nil {
			return nil, buildErr(txIndex, j, err.Error())
		}
		pkts = append(pkts, inputPkts...)
	}

	for k, o := range tx.Outputs {
		outPkt, err := buildOutputPacket(height, tx.ID, txIndex, k, o, p.Timestamp, namespace, compression)
		if err != nil {
			return nil, buildErr(txIndex, k, err.Error())
		}
		pkts = append(pkts, outPkt)
	}

	for m, r := range tx.Receipts {
		recPkt, err := buildReceiptPacket(height, tx.ID, txIndex, m, r, p.Timestamp, namespace, compression)
		if err != nil {
			return nil, buildErr(txIndex, m, err.Error())
		}
		pkts = append(pkts, recPkt)
	}

	return pkts, nil
}

func elemFields(height uint64, txID string, txIndex, elemIndex int) map[string]string {
	return map[string]string{
		"block_height":  strconv.FormatUint(height, 10),
		"tx_id":         txID,
		"tx_index":      strconv.Itoa(txIndex),
		"element_index": strconv.Itoa(elemIndex),
	}
}

func buildInputPackets(height uint64, txID string, txIndex, inputIndex int, in InputPayload, blockTime int64, namespace string, compression record.CompressionMode) ([]Packet, error) {
	var pkts []Packet
	ti, ei := uint32(txIndex), uint32(inputIndex)

	switch in.Kind {
	case "coin":
		rec := record.NewInputCoin(height, txID, ti, ei, in.Owner, in.Asset, in.Amount, in.PredicateBlob)
		fields := elemFields(height, txID, txIndex, inputIndex)
		fields["owner"] = in.Owner
		fields["asset"] = in.Asset
		pkt, err := makePacket(subject.IDInputsCoin, fields, rec.Cursor(), rec, blockTime, namespace, compression)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, pkt)

		utxoRec := record.NewUtxoCoin(height, txID, ti, ei, in.UtxoID, in.Owner, in.Asset, in.Amount)
		utxoFields := elemFields(height, txID, txIndex, inputIndex)
		utxoFields["owner"] = in.Owner
		utxoFields["asset"] = in.Asset
		utxoPkt, err := makePacket(subject.IDUtxosCoin, utxoFields, utxoRec.Cursor(), utxoRec, blockTime, namespace, compression)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, utxoPkt)

		if blobID, ok := predicateBlobID(in.PredicateBlob); ok {
			predRec := record.NewPredicate(height, txID, ti, ei, blobID, in.PredicateBlob)
			predFields := elemFields(height, txID, txIndex, inputIndex)
			predFields["blob_id"] = blobID
			predPkt, err := makePacket(subject.IDPredicates, predFields, predRec.Cursor(), predRec, blockTime, namespace, compression)
			if err != nil {
				return nil, err
			}
			pkts = append(pkts, predPkt)
		}

	case "contract":
		rec := record.NewInputContract(height, txID, ti, ei, in.Contract, in.UtxoID)
		fields := elemFields(height, txID, txIndex, inputIndex)
		fields["contract"] = in.Contract
		pkt, err := makePacket(subject.IDInputsContract, fields, rec.Cursor(), rec, blockTime, namespace, compression)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, pkt)

		utxoRec := record.NewUtxoContract(height, txID, ti, ei, in.UtxoID, in.Contract)
		utxoFields := elemFields(height, txID, txIndex, inputIndex)
		utxoFields["contract"] = in.Contract
		utxoPkt, err := makePacket(subject.IDUtxosContract, utxoFields, utxoRec.Cursor(), utxoRec, blockTime, namespace, compression)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, utxoPkt)

	case "message":
		rec := record.NewInputMessage(height, txID, ti, ei, in.Sender, in.Recipient, in.Nonce, in.Amount)
		fields := elemFields(height, txID, txIndex, inputIndex)
		fields["sender"] = in.Sender
		fields["recipient"] = in.Recipient
		pkt, err := makePacket(subject.IDInputsMessage, fields, rec.Cursor(), rec, blockTime, namespace, compression)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, pkt)

		utxoRec := record.NewUtxoMessage(height, txID, ti, ei, in.UtxoID, in.Sender, in.Recipient)
		utxoFields := elemFields(height, txID, txIndex, inputIndex)
		utxoFields["sender"] = in.Sender
		utxoFields["recipient"] = in.Recipient
		utxoPkt, err := makePacket(subject.IDUtxosMessage, utxoFields, utxoRec.Cursor(), utxoRec, blockTime, namespace, compression)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, utxoPkt)

	default:
		return nil, errs.New(errs.KindCodec, errs.ReasonDecode, "unknown input kind "+in.Kind)
	}

	return pkts, nil
}

func buildOutputPacket(height uint64, txID string, txIndex, outputIndex int, o OutputPayload, blockTime int64, namespace string, compression record.CompressionMode) (Packet, error) {
	ti, ei := uint32(txIndex), uint32(outputIndex)

	switch o.Kind {
	case "coin":
		rec := record.NewOutputCoin(height, txID, ti, ei, o.To, o.Asset, o.Amount)
		fields := elemFields(height, txID, txIndex, outputIndex)
		fields["to"] = o.To
		fields["asset"] = o.Asset
		return makePacket(subject.IDOutputsCoin, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "contract":
		rec := record.NewOutputContract(height, txID, ti, ei, o.InputIndex)
		fields := elemFields(height, txID, txIndex, outputIndex)
		return makePacket(subject.IDOutputsContract, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "change":
		rec := record.NewOutputChange(height, txID, ti, ei, o.To, o.Asset, o.Amount)
		fields := elemFields(height, txID, txIndex, outputIndex)
		fields["to"] = o.To
		fields["asset"] = o.Asset
		return makePacket(subject.IDOutputsChange, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "variable":
		rec := record.NewOutputVariable(height, txID, ti, ei, o.To, o.Asset, o.Amount)
		fields := elemFields(height, txID, txIndex, outputIndex)
		fields["to"] = o.To
		fields["asset"] = o.Asset
		return makePacket(subject.IDOutputsVariable, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "contract_created":
		rec := record.NewOutputContractCreated(height, txID, ti, ei, o.Contract)
		fields := elemFields(height, txID, txIndex, outputIndex)
		fields["contract"] = o.Contract
		return makePacket(subject.IDOutputsContractCreated, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	default:
		return Packet{}, errs.New(errs.KindCodec, errs.ReasonDecode, "unknown output kind "+o.Kind)
	}
}

func buildReceiptPacket(height uint64, txID string, txIndex, receiptIndex int, r ReceiptPayload, blockTime int64, namespace string, compression record.CompressionMode) (Packet, error) {
	ti, ei := uint32(txIndex), uint32(receiptIndex)
	fields := elemFields(height, txID, txIndex, receiptIndex)

	switch r.Kind {
	case "call":
		rec := record.NewReceiptCall(height, txID, ti, ei, r.Contract, r.Amount, r.Gas)
		fields["contract"] = r.Contract
		return makePacket(subject.IDReceiptsCall, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "return":
		rec := record.NewReceiptReturn(height, txID, ti, ei, r.Val)
		return makePacket(subject.IDReceiptsReturn, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "return_data":
		rec := record.NewReceiptReturnData(height, txID, ti, ei, r.Data)
		return makePacket(subject.IDReceiptsReturnData, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "panic":
		rec := record.NewReceiptPanic(height, txID, ti, ei, r.Reason)
		return makePacket(subject.IDReceiptsPanic, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "revert":
		rec := record.NewReceiptRevert(height, txID, ti, ei, r.Reason)
		return makePacket(subject.IDReceiptsRevert, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "log":
		rec := record.NewReceiptLog(height, txID, ti, ei, r.Contract, r.Val0, r.Val1)
		fields["contract"] = r.Contract
		return makePacket(subject.IDReceiptsLog, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "log_data":
		rec := record.NewReceiptLogData(height, txID, ti, ei, r.Contract, r.Data)
		fields["contract"] = r.Contract
		return makePacket(subject.IDReceiptsLogData, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "transfer":
		rec := record.NewReceiptTransfer(height, txID, ti, ei, r.To, r.Asset, r.Amount)
		fields["to"] = r.To
		fields["asset"] = r.Asset
		return makePacket(subject.IDReceiptsTransfer, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "transfer_out":
		rec := record.NewReceiptTransferOut(height, txID, ti, ei, r.To, r.Asset, r.Amount)
		fields["to"] = r.To
		fields["asset"] = r.Asset
		return makePacket(subject.IDReceiptsTransferOut, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "script_result":
		rec := record.NewReceiptScriptResult(height, txID, ti, ei, r.Result, r.Gas)
		return makePacket(subject.IDReceiptsScriptResult, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "message_out":
		rec := record.NewReceiptMessageOut(height, txID, ti, ei, r.Sender, r.Recipient, r.Amount, r.Data)
		fields["sender"] = r.Sender
		fields["recipient"] = r.Recipient
		return makePacket(subject.IDReceiptsMessageOut, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "mint":
		rec := record.NewReceiptMint(height, txID, ti, ei, r.Contract, r.Asset, r.Amount)
		fields["contract"] = r.Contract
		fields["asset"] = r.Asset
		return makePacket(subject.IDReceiptsMint, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	case "burn":
		rec := record.NewReceiptBurn(height, txID, ti, ei, r.Contract, r.Asset, r.Amount)
		fields["contract"] = r.Contract
		fields["asset"] = r.Asset
		return makePacket(subject.IDReceiptsBurn, fields, rec.Cursor(), rec, blockTime, namespace, compression)
	default:
		return Packet{}, errs.New(errs.KindCodec, errs.ReasonDecode, "unknown receipt kind "+r.Kind)
	}
}

func buildMessagePackets(p BlockPayload, namespace string, compression record.CompressionMode) ([]Packet, error) {
	pkts := make([]Packet, 0, len(p.Messages))
	for idx, m := range p.Messages {
		entityID := subject.IDMessagesImported
		if m.Kind == "consumed" {
			entityID = subject.IDMessagesConsumed
		} else if m.Kind != "imported" {
			return nil, buildErr(-1, idx, "unknown message kind "+m.Kind)
		}

		var rec record.Record
		if entityID == subject.IDMessagesConsumed {
			rec = record.NewMessageConsumed(p.Height, uint32(idx), m.Sender, m.Recipient, m.Nonce, m.Amount)
		} else {
			rec = record.NewMessageImported(p.Height, uint32(idx), m.Sender, m.Recipient, m.Nonce, m.Amount)
		}

		fields := map[string]string{
			"block_height":  strconv.FormatUint(p.Height, 10),
			"message_index": strconv.Itoa(idx),
			"sender":        m.Sender,
			"recipient":     m.Recipient,
		}
		pkt, err := makePacket(entityID, fields, rec.Cursor(), rec, p.Timestamp, namespace, compression)
		if err != nil {
			return nil, buildErr(-1, idx, err.Error())
		}
		pkts = append(pkts, pkt)
	}
	return pkts, nil
}

// predicateBlobID derives the predicate's blob-id from its bytecode. An
// empty blob means "no predicate attached"; any non-empty blob parses
// deterministically (spec §4.3: "whose blob-id parses").
func predicateBlobID(blob []byte) (string, bool) {
	if len(blob) == 0 {
		return "", false
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), true
}
