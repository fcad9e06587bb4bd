package stomp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the errors the core can raise. See spec §7 for the
// taxonomy; the core never retries on its own, it only classifies and
// surfaces.
type Kind int

const (
	// ProtocolError marks a command or header combination illegal for
	// the negotiated version, or a server frame that violates session
	// state.
	ProtocolError Kind = iota
	// MalformedFrame marks bytes that cannot be parsed as a frame.
	MalformedFrame
	// MalformedURI marks a rejected failover URI.
	MalformedURI
	// ConnectionTimeout marks a CONNECTED that did not arrive within
	// the caller-specified window.
	ConnectionTimeout
	// ConnectionLost marks a transport that closed unexpectedly.
	ConnectionLost
	// NoMoreBrokers marks an exhausted failover iterator.
	NoMoreBrokers
)

func (k Kind) String() string {
	switch k {
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case MalformedFrame:
		return "MALFORMED_FRAME"
	case MalformedURI:
		return "MALFORMED_URI"
	case ConnectionTimeout:
		return "CONNECTION_TIMEOUT"
	case ConnectionLost:
		return "CONNECTION_LOST"
	case NoMoreBrokers:
		return "NO_MORE_BROKERS"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the error type raised by every component in this module.
// It carries a Kind so callers can switch on the taxonomy from §7
// instead of matching error strings.
type Error struct {
	Kind Kind
	msg  string
	// cause is the wrapped underlying error, if any. Kept separate from
	// msg so Unwrap() exposes the chain; Error() appends it after msg.
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("stomp: %s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("stomp: %s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// NewError builds an *Error of the given Kind. Exported so sibling
// packages (e.g. failover) can raise the same taxonomy without
// reaching into this package's internals.
func NewError(kind Kind, format string, args ...any) *Error {
	return newError(kind, format, args...)
}

// WrapError builds an *Error of the given Kind wrapping cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return wrapError(kind, cause, format, args...)
}

// Is implements errors.Is support keyed on Kind: two *Error values
// match if their Kind matches, regardless of message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf reports the Kind of err if err is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
