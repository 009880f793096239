package sfmc

import (
	"errors"
	"fmt"
)

// Kind tags every failure this package produces so callers can classify
// it without string matching.
type Kind string

const (
	// KindAuth covers token-exchange failures: network errors against the
	// auth tenant, non-2xx responses, and malformed token payloads.
	KindAuth Kind = "auth_error"
	// KindTransport covers provider-request failures: network errors and
	// responses outside the 2xx range.
	KindTransport Kind = "transport_error"
	// KindParse covers malformed JSON, in either direction.
	KindParse Kind = "parse_error"
	// KindNotInitialized marks calls made before a session exists.
	KindNotInitialized Kind = "not_initialized"
)

// Error is the failure variant of every operation in this package. It
// carries a kind tag and a human-readable message, and wraps the
// underlying cause when one exists.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// ErrNotInitialized is what front ends return for operations invoked
// before a session has been initialized.
var ErrNotInitialized = &Error{
	Kind:    KindNotInitialized,
	Message: "connection not initialized",
}

// KindOf extracts the kind tag from err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// errf builds a kind-tagged Error, wrapping cause (which may be nil).
func errf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}
