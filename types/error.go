package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Stream error codes
const (
	ErrInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	ErrProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"
	ErrInvalidState      ErrorCode = "INVALID_STATE"
	ErrTransport         ErrorCode = "TRANSPORT"
)

// Negotiation error codes
const (
	ErrParameterMissing     ErrorCode = "PARAMETER_MISSING"
	ErrParameterOutOfBounds ErrorCode = "PARAMETER_OUT_OF_BOUNDS"
	ErrUnknownGenerator     ErrorCode = "UNKNOWN_GENERATOR"
	ErrUnknownReceptor      ErrorCode = "UNKNOWN_RECEPTOR"
	ErrUnknownOperation     ErrorCode = "UNKNOWN_OPERATION"
)

// Storage error codes
const (
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrStorage  ErrorCode = "STORAGE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField records the parameter or message field the error refers to.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error anywhere in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsProtocolViolation reports whether err is a protocol violation.
func IsProtocolViolation(err error) bool {
	return IsErrorCode(err, ErrProtocolViolation)
}

// NewProtocolError builds a protocol violation error.
func NewProtocolError(format string, args ...any) *Error {
	return Errorf(ErrProtocolViolation, format, args...)
}
