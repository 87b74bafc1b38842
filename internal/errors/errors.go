// Package errors provides the structured error taxonomy shared by the
// SysAdvisor pipeline and its satellite utilities.
//
// Every failure carries a Code so callers can decide whether it is fatal
// (collection, configuration, validation) or degradable (analysis,
// transport) without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure.
type ErrorCode string

const (
	// ErrCodeCollection means an OS metric query failed; the snapshot is lost.
	ErrCodeCollection ErrorCode = "COLLECTION"
	// ErrCodeAnalysis means the remote analysis call failed or timed out.
	ErrCodeAnalysis ErrorCode = "ANALYSIS"
	// ErrCodeConfiguration means a required credential or setting is missing.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeTransport means a mail send or subprocess call failed.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeValidation means user input was rejected before any work started.
	ErrCodeValidation ErrorCode = "VALIDATION"
)

// StructuredError is an error with a code, a message and an optional cause.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a StructuredError without a cause.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message}
}

// Newf is New with fmt formatting.
func Newf(code ErrorCode, format string, args ...any) *StructuredError {
	return &StructuredError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with a code and message.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause}
}

// IsCode reports whether any error in err's chain is a StructuredError
// with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StructuredError
	for err != nil {
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}
