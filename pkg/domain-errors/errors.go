// Package domainerrors provides coded errors for domain outcomes.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// coded errors here; transport layers map codes to HTTP statuses without
// inspecting message text. Every code is a terminal, user-visible outcome;
// nothing in this taxonomy is retried internally.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeExpired            Code = "expired"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error. Reason is a stable machine-readable
// discriminator within a code (e.g. two Conflict outcomes that callers must
// tell apart); it is optional.
type Error struct {
	Code    Code
	Reason  string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// NewWithReason constructs a coded error carrying a stable reason string for
// callers that must distinguish outcomes sharing a code.
func NewWithReason(code Code, reason, message string) error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeConflict).
func Is(err error, code Code) bool { return HasCode(err, code) }

// Reason returns the reason string of the outermost coded error, or "".
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// CodeOf returns the code of the outermost coded error, defaulting to
// CodeInternal for uncoded errors so transport never guesses.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
