// Package ferrors defines the Fin-Hub error taxonomy: a small set of Kinds
// shared by the frontend, router, registry, spoke runtime, and aggregator so
// that a failure can cross a process boundary and still be classified the
// same way it was raised.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a Fin-Hub error, independent of which
// component raised it. Kinds map onto JSON-RPC error codes via Code.
type Kind int

const (
	// KindUnknown is the zero value; never intentionally raised.
	KindUnknown Kind = iota
	// KindParseError marks JSON that failed to decode at all.
	KindParseError
	// KindInvalidRequest marks a malformed JSON-RPC envelope.
	KindInvalidRequest
	// KindMethodNotFound marks an unrecognized method name.
	KindMethodNotFound
	// KindInvalidParams marks a schema-validation failure on tool arguments.
	KindInvalidParams
	// KindToolNotFound marks an unresolvable tool name at the router.
	KindToolNotFound
	// KindNoHealthyInstance marks an empty Passing instance set.
	KindNoHealthyInstance
	// KindAllInstancesOpen marks every candidate breaker being Open.
	KindAllInstancesOpen
	// KindDeadlineExceeded marks a context deadline reached mid-dispatch.
	KindDeadlineExceeded
	// KindTransient marks a retryable spoke-call failure (network error,
	// timeout, HTTP 5xx-equivalent) distinct from a deadline outright
	// elapsing.
	KindTransient
	// KindCancelled marks caller-initiated cancellation.
	KindCancelled
	// KindResourceExhausted marks inbound queue overflow.
	KindResourceExhausted
	// KindProviderRateLimited marks an aggregator provider with an empty budget.
	KindProviderRateLimited
	// KindAllProvidersFailed marks exhaustion of the aggregator fallback chain.
	KindAllProvidersFailed
	// KindDataNotFound marks a provider's authoritative absence response.
	KindDataNotFound
	// KindHandlerFailure marks a spoke tool handler error.
	KindHandlerFailure
	// KindInternal marks an unclassified bug.
	KindInternal
)

// Error is a Kind-tagged error that preserves a causal chain across process
// and serialization boundaries, modeled on the tool-error pattern used
// throughout the tool invocation stack it was adapted from.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	// Data carries optional structured detail (correlation id, fallback
	// chain, sanitized per-provider breakdown) surfaced in the JSON-RPC
	// error object's data field.
	Data any
}

// New constructs an Error of the given Kind with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given Kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Errorf formats message and wraps it in a Kind-tagged Error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As across the cause chain.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithData returns a copy of e carrying the given data payload.
func (e *Error) WithData(data any) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Data = data
	return &clone
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// KindInternal otherwise.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Code maps a Kind to its JSON-RPC numeric error code per the Fin-Hub
// error taxonomy. Standard JSON-RPC codes are used where applicable;
// application-specific failures use the -32001..-32020 range.
func Code(kind Kind) int {
	switch kind {
	case KindParseError:
		return -32700
	case KindInvalidRequest:
		return -32600
	case KindMethodNotFound:
		return -32601
	case KindInvalidParams:
		return -32602
	case KindToolNotFound:
		return -32001
	case KindNoHealthyInstance:
		return -32002
	case KindAllInstancesOpen:
		return -32003
	case KindDeadlineExceeded:
		return -32004
	case KindTransient:
		return -32007
	case KindCancelled:
		return -32005
	case KindResourceExhausted:
		return -32006
	case KindProviderRateLimited:
		return -32010
	case KindAllProvidersFailed:
		return -32011
	case KindDataNotFound:
		return -32012
	case KindHandlerFailure:
		return -32020
	default:
		return -32603
	}
}

// Retryable reports whether a failure of this Kind should be retried
// locally by its caller (router across instances, aggregator across
// providers) rather than surfaced immediately. Client-input errors and
// authoritative absence are never retryable.
func Retryable(kind Kind) bool {
	switch kind {
	case KindDeadlineExceeded, KindProviderRateLimited, KindTransient:
		return true
	default:
		return false
	}
}

// ParseError returns an Error classified as a JSON-RPC parse failure.
func ParseError(cause error) *Error {
	return &Error{Kind: KindParseError, Message: "parse error", Cause: cause}
}
