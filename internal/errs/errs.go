// Package errs defines the error taxonomy shared across the streaming
// spine: transport, persistence, codec, authorization, protocol, and
// internal failures. Every component wraps its low-level errors into one
// of these kinds so callers can branch on Kind without parsing strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the families a caller needs to
// distinguish (retry vs. fail the message, 4xx vs. 5xx, close vs. continue).
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindPersistence
	KindCodec
	KindAuthorization
	KindProtocol
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindPersistence:
		return "persistence"
	case KindCodec:
		return "codec"
	case KindAuthorization:
		return "authorization"
	case KindProtocol:
		return "protocol"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Reason is a machine-readable tag nested inside a Kind, e.g. "commit",
// "scope", "invalid_pattern". It is what WebSocket close frames and REST
// error bodies surface to clients (spec §6.3, §7).
type Reason string

// Error is the concrete error type every component returns. It wraps an
// underlying cause, never discarding it, so errors.Is/errors.As keep working
// through the chain.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no cause.
func New(kind Kind, reason Reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// Wrap builds an Error around an existing cause. Returns nil if err is nil,
// mirroring pkg/utils.Wrap's nil-safety.
func Wrap(kind Kind, reason Reason, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, Message: message, Cause: err}
}

// Is reports whether err (or anything it wraps) is a tagged Error of the
// given Kind. Used by REST/WS boundaries to pick a status code or close code.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the tagged *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Retryable reports whether an error belongs to a class the executor's
// retry service should retry (transient transport/persistence failures),
// as opposed to fatal codec/schema violations (spec §4.6).
func Retryable(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindTransport:
		return true
	case KindPersistence:
		switch e.Reason {
		case ReasonAcquire, ReasonExecute, ReasonCommit, ReasonTimeout:
			return true
		}
	}
	return false
}

// Well-known reasons. Not exhaustive: components may define their own
// Reason values local to their package.
const (
	ReasonConnection    Reason = "connection"
	ReasonPublish       Reason = "publish"
	ReasonReceive       Reason = "receive"
	ReasonFlush         Reason = "flush"
	ReasonAcquire       Reason = "acquire"
	ReasonExecute       Reason = "execute"
	ReasonCommit        Reason = "commit"
	ReasonNotFound      Reason = "not_found"
	ReasonUniqueViolate Reason = "unique_violation"
	ReasonEncode        Reason = "encode"
	ReasonDecode        Reason = "decode"
	ReasonSubjectParse  Reason = "subject_parse"
	ReasonPatternInvalid Reason = "pattern_invalid"
	ReasonSubjectMismatch Reason = "subject_mismatch"
	ReasonMissing       Reason = "missing"
	ReasonInvalid       Reason = "invalid"
	ReasonInactive      Reason = "inactive"
	ReasonDeleted       Reason = "deleted"
	ReasonScope         Reason = "scope"
	ReasonRate          Reason = "rate_limit_exceeded"
	ReasonSubLimit      Reason = "subscription_limit_exceeded"
	ReasonHistLimit     Reason = "historical_limit_exceeded"
	ReasonUnsupported   Reason = "unsupported_message"
	ReasonInvalidPayload Reason = "invalid_payload"
	ReasonClosed        Reason = "closed"
	ReasonTimeout       Reason = "timeout"
	ReasonCancelled     Reason = "cancelled"
	ReasonUnexpected    Reason = "unexpected"
)

// SubjectMismatch is a convenience constructor for the I3 invariant
// violation: a packet's subject doesn't fit its declared record variant.
// The packet builder returns it when a packet's subject is not fully
// instantiated.
func SubjectMismatch(message string) *Error {
	return New(KindCodec, ReasonSubjectMismatch, message)
}
