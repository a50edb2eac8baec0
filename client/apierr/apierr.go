// Package apierr defines the error taxonomy shared by every client and
// server component: pool exhaustion, a failed round trip, an empty result,
// malformed data, and driver-level exceptions are all distinguishable by
// Kind so callers can branch on outcome without string-matching messages.
package apierr

import "fmt"

// Kind classifies what went wrong along the request path.
type Kind int

const (
	// KindNone indicates no error; zero value is never surfaced to callers.
	KindNone Kind = iota
	// KindPool indicates the connection pool could not hand out (or accept
	// back) a connection: exhausted, acquire timeout, or dial failure.
	KindPool
	// KindCommand indicates the connection was acquired but the round trip
	// itself failed: send error, frame decode error, or a reply the remote
	// never sent.
	KindCommand
	// KindEmpty indicates a well-formed reply carried no document where one
	// was expected (e.g. retrieve-by-id found nothing).
	KindEmpty
	// KindData indicates the reply document failed schema validation or
	// content-sanity checks.
	KindData
	// KindException indicates the underlying MongoDB driver raised an error
	// (write conflict, duplicate key, server selection timeout, ...).
	KindException
	// KindInvalid indicates the caller supplied a malformed request before
	// any network activity occurred.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindPool:
		return "pool_failure"
	case KindCommand:
		return "command_failure"
	case KindEmpty:
		return "empty"
	case KindData:
		return "data_error"
	case KindException:
		return "exception"
	case KindInvalid:
		return "invalid"
	default:
		return "none"
	}
}

// Error is the concrete error type returned by client and server
// components. Cause, when set, is unwrapped by errors.Is/errors.As.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Pool is a convenience constructor for KindPool errors.
func Pool(message string, cause error) *Error { return Wrap(KindPool, message, cause) }

// Command is a convenience constructor for KindCommand errors.
func Command(message string, cause error) *Error { return Wrap(KindCommand, message, cause) }

// Empty is a convenience constructor for KindEmpty errors.
func Empty(message string) *Error { return New(KindEmpty, message) }

// Data is a convenience constructor for KindData errors.
func Data(message string, cause error) *Error { return Wrap(KindData, message, cause) }

// Exception is a convenience constructor for KindException errors.
func Exception(message string, cause error) *Error { return Wrap(KindException, message, cause) }

// Invalid is a convenience constructor for KindInvalid errors.
func Invalid(message string) *Error { return New(KindInvalid, message) }

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// KindException otherwise — any error the dispatcher didn't originate is
// treated as a driver-level exception rather than silently ignored.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return KindException
}

// As is a thin indirection over errors.As kept local to avoid importing
// the standard errors package in every call site that just wants KindOf.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
