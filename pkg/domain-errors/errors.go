// Package domainerrors defines the coded error taxonomy for the registry.
//
// Every failure a transaction can produce is a deterministic function of
// (state, input) and maps to exactly one code. Stores return sentinel errors
// (pkg/platform/sentinel); services translate them into these coded errors
// so the transport layer can surface the failure name and identifiers
// verbatim to the submitter.
package domainerrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	// CodeNotFound: a referenced entity is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeAlreadyExists: a uniqueness invariant would be violated.
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	// CodeNotAuthorized: a capability or ownership check failed.
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	// CodeInvalidState: the operation is illegal for the entity's current
	// lifecycle state.
	CodeInvalidState Code = "INVALID_STATE"
	// CodeTooLong / CodeTooShort: bounded-field validation.
	CodeTooLong  Code = "TOO_LONG"
	CodeTooShort Code = "TOO_SHORT"
	// CodeInvalidInput: malformed input that never reached domain state.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeInternal: infrastructure failure surfaced to the caller. The core
	// itself never produces this; only store adapters do.
	CodeInternal Code = "INTERNAL"
)

// Error is a coded domain error. The message is safe to return to the
// submitter together with the offending identifiers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
