package record

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zstd"

	"fuelstreams/internal/errs"
)

// CompressionMode selects the packet-value compression strategy (§1 of
// SPEC_FULL.md, grounded on original_source's
// fuel-data-parser/compression_strategies.rs, which offers {none, zstd,
// gzip}; gzip is dropped here -- strictly dominated by zstd for this
// payload shape, see DESIGN.md).
type CompressionMode byte

const (
	CompressionNone CompressionMode = 0
	CompressionZstd CompressionMode = 1
)

// Envelope is the durable packet value's binary framing: a one-byte
// version, a one-byte compression tag, a four-byte big-endian length of
// the body, then the (possibly compressed) canonical JSON payload. This is the "value" field of a Packet (spec
// §3.1) once it is written to the broker or the store.
type Envelope struct {
	Version     byte
	Compression CompressionMode
	Payload     []byte // canonical JSON of the Record, pre-compression
}

var zstdEncoder *zstd.Encoder
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
}

// Encode serializes the envelope to bytes, compressing Payload according
// to mode.
func Encode(payload []byte, mode CompressionMode) ([]byte, error) {
	body := payload
	if mode == CompressionZstd {
		body = zstdEncoder.EncodeAll(payload, nil)
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(body)+6))
	buf.WriteByte(Version)
	buf.WriteByte(byte(mode))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode parses bytes produced by Encode back into the original
// (decompressed) JSON payload.
func Decode(data []byte) ([]byte, error) {
	if len(data) < 6 {
		return nil, errs.New(errs.KindCodec, errs.ReasonDecode, "envelope too short")
	}
	version := data[0]
	if version != Version {
		return nil, errs.New(errs.KindCodec, errs.ReasonDecode, "unsupported record_version")
	}
	mode := CompressionMode(data[1])
	n := binary.BigEndian.Uint32(data[2:6])
	rest := data[6:]
	if uint32(len(rest)) != n {
		return nil, errs.New(errs.KindCodec, errs.ReasonDecode, "envelope length mismatch")
	}
	switch mode {
	case CompressionNone:
		out := make([]byte, len(rest))
		copy(out, rest)
		return out, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(rest, nil)
		if err != nil {
			return nil, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "zstd decode")
		}
		return out, nil
	default:
		return nil, errs.New(errs.KindCodec, errs.ReasonDecode, "unknown compression mode")
	}
}

// EncodeRecord is the convenience path used by the packet builder: encode
// r's canonical JSON, then frame it with the given compression mode.
func EncodeRecord(r Record, mode CompressionMode) ([]byte, error) {
	payload, err := r.EncodeJSON()
	if err != nil {
		return nil, errs.Wrap(errs.KindCodec, errs.ReasonEncode, err, "encode record json")
	}
	return Encode(payload, mode)
}
