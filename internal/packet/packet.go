package packet

import (
	"fmt"

	"fuelstreams/internal/errs"
	"fuelstreams/internal/record"
)

// Packet is the unit of durable insert and live publish (spec §3.1).
type Packet struct {
	Subject        string
	SubjectPayload string // the entity id segment, for dispatch (subject.IDBlocks, ...)
	Cursor         record.Cursor
	Value          []byte // canonical envelope bytes (record.Encode output)
	BlockTimestamp int64
	Namespace      string
	Filters        map[string]string
}

// NamespacedSubject returns s.Subject prefixed by the namespace the way
// original_source's msg_broker.rs Namespace.subject_name does.
func NamespacedSubject(namespace, subject string) string {
	if namespace == "" {
		return subject
	}
	return namespace + "." + subject
}

// BuildError reports a malformed block payload: unreachable for
// well-formed input, but surfaced with the failing element so the caller
// can reject the work-queue message without guessing (spec §4.3 error
// policy, §9 Open Question decision on message cursor shape).
type BuildError struct {
	TxIndex      int
	ElementIndex int
	Reason       string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("packet build failed at tx=%d element=%d: %s", e.TxIndex, e.ElementIndex, e.Reason)
}

func buildErr(txIndex, elemIndex int, reason string) error {
	return errs.Wrap(errs.KindCodec, errs.ReasonDecode, &BuildError{TxIndex: txIndex, ElementIndex: elemIndex, Reason: reason}, "packet build")
}
