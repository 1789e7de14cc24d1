// Package errors provides structured error types for petrisync.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the editor core, CLI and HTTP feed
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into four groups:
//   - Model errors raised at the synchronizer boundary
//     (MALFORMED_POSITION, DANGLING_REFERENCE, INCOMPLETE_ENTITY,
//     UNKNOWN_ENTITY_TYPE). These are expected and never fatal: the
//     offending notification is dropped and previous state is kept.
//   - INDEX_CORRUPTION, a programming error in the entity index.
//   - Resource and transport errors (NOT_FOUND, NETWORK_ERROR, ...).
//   - INTERNAL_ERROR and UNSUPPORTED.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedPosition, "position %q has no separator", s)
//	if errors.Is(err, errors.ErrCodeMalformedPosition) {
//	    // keep the node where it is
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "dial %s", url)
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Model notification errors
	ErrCodeMalformedPosition Code = "MALFORMED_POSITION"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"
	ErrCodeIncompleteEntity  Code = "INCOMPLETE_ENTITY"
	ErrCodeUnknownEntityType Code = "UNKNOWN_ENTITY_TYPE"

	// Entity index invariant violation
	ErrCodeIndexCorruption Code = "INDEX_CORRUPTION"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidName  Code = "INVALID_NAME"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Transport errors
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Expected reports whether err belongs to the classes a synchronizer
// drops silently: malformed positions, dangling arcs, entities that are
// not ready yet and unknown entity types.
func Expected(err error) bool {
	switch GetCode(err) {
	case ErrCodeMalformedPosition, ErrCodeDanglingReference,
		ErrCodeIncompleteEntity, ErrCodeUnknownEntityType:
		return true
	}
	return false
}

// IsTimeout reports whether err is a deadline or a network timeout, or
// carries ErrCodeTimeout.
func IsTimeout(err error) bool {
	if Is(err, ErrCodeTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
