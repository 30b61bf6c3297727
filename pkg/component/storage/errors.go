package storage

import (
	"fmt"
)

// Common storage error values. Wrap them with WithMessage or WithCause
// to add call-site context; errors.Is matches on the code.
var (
	// ErrNotConnected indicates the client was never initialized or the
	// connection was closed or lost.
	ErrNotConnected = &StorageError{
		Code:    "NOT_CONNECTED",
		Message: "storage client is not connected",
	}

	// ErrConnectionFailed indicates a connect attempt failed (network,
	// credentials, or backend unavailable).
	ErrConnectionFailed = &StorageError{
		Code:    "CONNECTION_FAILED",
		Message: "failed to connect to storage backend",
	}

	// ErrInvalidConfig indicates the storage configuration failed
	// validation before any connection attempt.
	ErrInvalidConfig = &StorageError{
		Code:    "INVALID_CONFIG",
		Message: "invalid storage configuration",
	}

	// ErrClientAlreadyExists indicates a client with the same name is
	// already registered.
	ErrClientAlreadyExists = &StorageError{
		Code:    "CLIENT_ALREADY_EXISTS",
		Message: "storage client already exists",
	}

	// ErrOperationFailed is a generic operation failure, meant to be
	// wrapped with specifics.
	ErrOperationFailed = &StorageError{
		Code:    "OPERATION_FAILED",
		Message: "storage operation failed",
	}
)

// StorageError is a storage-related error with a stable machine code, a
// human-readable message, and an optional cause.
type StorageError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As
// across the chain.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is matches two StorageErrors by code.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy with the message replaced, keeping the code
// so errors.Is still matches the base value.
func (e *StorageError) WithMessage(msg string) *StorageError {
	return &StorageError{
		Code:    e.Code,
		Message: msg,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy carrying cause as the wrapped error.
func (e *StorageError) WithCause(cause error) *StorageError {
	return &StorageError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	}
}
