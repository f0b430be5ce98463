// Package apperrors defines the coded error taxonomy shared by all layers.
//
// Codes, not types, cross package boundaries: repositories and services attach
// a Code, the HTTP layer maps the Code to a status. Precondition failures are
// deliberately indistinguishable from "not found" so callers cannot probe for
// requests outside their authority.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for boundary handling.
type Code string

const (
	// CodeUnauthorized: actor lacks the department-scoped role or permission.
	CodeUnauthorized Code = "unauthorized"
	// CodePrecondition: the subject does not match the expected
	// status/department/ownership filter, or does not exist at all.
	CodePrecondition Code = "precondition"
	// CodeInvariant: operational configuration defect (missing intake
	// department, path with no steps, no previous department to return to).
	CodeInvariant Code = "invariant"
	// CodeInvalidInput: malformed input.
	CodeInvalidInput Code = "invalid_input"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound reports a missing (or filtered-out) resource as a precondition
// failure; callers cannot tell the two apart.
func NotFound(resource, id string) error {
	return &Error{Code: CodePrecondition, Message: fmt.Sprintf("%s %s not found or not in the expected state", resource, id)}
}

// InvalidInput reports a malformed field.
func InvalidInput(field, message string) error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf("%s: %s", field, message)}
}

// Unauthorized reports a missing permission without revealing anything about
// the subject.
func Unauthorized(message string) error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
