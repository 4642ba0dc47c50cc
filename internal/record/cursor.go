// Package record implements the typed record family of spec §3.1/§4.2:
// Block, Transaction, Input/Output/Receipt/Utxo variants, Predicate and
// Message, their composite cursors, canonical encodings, and projections
// to the relational row shape of spec §6.2.
package record

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"fuelstreams/internal/errs"
)

// Cursor is the composite ordering key of spec §3.1: block_height plus
// optional tx_index and element_index (input/output/receipt/message
// index), total-ordered lexicographically on the populated components.
type Cursor struct {
	BlockHeight  uint64
	TxIndex      *uint32
	ElementIndex *uint32
}

// BlockCursor builds a block-scoped cursor (blocks entity).
func BlockCursor(height uint64) Cursor { return Cursor{BlockHeight: height} }

// TxCursor builds a transaction-scoped cursor.
func TxCursor(height uint64, txIndex uint32) Cursor {
	return Cursor{BlockHeight: height, TxIndex: &txIndex}
}

// ElemCursor builds an element-scoped cursor (input/output/receipt).
func ElemCursor(height uint64, txIndex, elementIndex uint32) Cursor {
	return Cursor{BlockHeight: height, TxIndex: &txIndex, ElementIndex: &elementIndex}
}

// MessageCursor builds the block-scoped message cursor decided in
// SPEC_FULL.md §4 (the Open Question in spec.md §9): messages are ordered
// by (block_height, message_index), never by transaction.
func MessageCursor(height uint64, messageIndex uint32) Cursor {
	return Cursor{BlockHeight: height, ElementIndex: &messageIndex}
}

func u32Compare(a, b *uint32) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// Compare implements the total order of §3.1 for two cursors of the same
// entity (same nil-ness pattern on each side, since a given entity's
// cursor shape is fixed). Returns -1, 0, 1.
func (c Cursor) Compare(o Cursor) int {
	if c.BlockHeight != o.BlockHeight {
		if c.BlockHeight < o.BlockHeight {
			return -1
		}
		return 1
	}
	if d := u32Compare(c.TxIndex, o.TxIndex); d != 0 {
		return d
	}
	return u32Compare(c.ElementIndex, o.ElementIndex)
}

// Less reports c < o under Compare, for use with sort.Slice.
func (c Cursor) Less(o Cursor) bool { return c.Compare(o) < 0 }

// Encode renders the cursor as an opaque, URL-safe paging token: base64 of
// "height:txIndex:elementIndex" with '-' standing in for an absent
// component (SPEC_FULL.md §3 item 4).
func (c Cursor) Encode() string {
	tx := "-"
	if c.TxIndex != nil {
		tx = strconv.FormatUint(uint64(*c.TxIndex), 10)
	}
	el := "-"
	if c.ElementIndex != nil {
		el = strconv.FormatUint(uint64(*c.ElementIndex), 10)
	}
	raw := fmt.Sprintf("%d:%s:%s", c.BlockHeight, tx, el)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Cursor.Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "decode cursor token")
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 {
		return Cursor{}, errs.New(errs.KindCodec, errs.ReasonDecode, "malformed cursor token")
	}
	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse cursor height")
	}
	c := Cursor{BlockHeight: height}
	if parts[1] != "-" {
		v, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Cursor{}, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse cursor tx_index")
		}
		v32 := uint32(v)
		c.TxIndex = &v32
	}
	if parts[2] != "-" {
		v, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return Cursor{}, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse cursor element_index")
		}
		v32 := uint32(v)
		c.ElementIndex = &v32
	}
	return c, nil
}
