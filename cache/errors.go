package cache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by cache stores when a key has no live entry.
// Stores translate backend-specific miss conditions (redis.Nil,
// gorm.ErrRecordNotFound, expired rows) into this sentinel.
var ErrNotFound = errors.New("cache entry not found")

// IsNotFound reports whether err denotes a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ErrorCode represents a unified error code across the cache manager.
type ErrorCode string

// Manager lifecycle and registry error codes
const (
	ErrCodeAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	ErrCodeIllegalState    ErrorCode = "ILLEGAL_STATE"
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrCodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	ErrCodeTypeMismatch    ErrorCode = "TYPE_MISMATCH"
)

// Error is the structured error type returned by manager operations.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
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

// WithCause attaches an underlying cause and returns the error for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the ErrorCode from an error chain.
// Returns an empty code when err carries no *Error.
func GetErrorCode(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
