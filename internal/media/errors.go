package media

import (
	"errors"
	"fmt"
)

// StorageErrorCode categorizes media storage errors.
type StorageErrorCode string

const (
	// ErrCodeNotFound indicates a lookup for an unknown media handle.
	ErrCodeNotFound StorageErrorCode = "MEDIA_NOT_FOUND"

	// ErrCodeUnsupportedOperation indicates a production-only pathway
	// (durable or network fetch) was invoked on the in-memory stub.
	ErrCodeUnsupportedOperation StorageErrorCode = "UNSUPPORTED_OPERATION"
)

// StorageError is returned for failed media storage operations.
//
// Lookup errors propagate through the script exactly as a production error
// would: an uncaught one becomes a script fault on the run result.
type StorageError struct {
	Code    StorageErrorCode
	Message string
	Handle  string // offending handle, if any
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("%s: %s (handle=%s)", e.Code, e.Message, e.Handle)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound returns true if the error is an unknown-handle lookup error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == ErrCodeNotFound
	}
	return false
}

// IsUnsupportedOperation returns true if the error is an unsupported-pathway error.
func IsUnsupportedOperation(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == ErrCodeUnsupportedOperation
	}
	return false
}

// NewNotFoundError creates a StorageError for an unknown handle.
func NewNotFoundError(handle string) *StorageError {
	return &StorageError{
		Code:    ErrCodeNotFound,
		Message: "no media record for handle",
		Handle:  handle,
	}
}

// NewUnsupportedOperationError creates a StorageError for a stubbed pathway.
func NewUnsupportedOperationError(op string) *StorageError {
	return &StorageError{
		Code:    ErrCodeUnsupportedOperation,
		Message: fmt.Sprintf("%s is not available in the in-memory media stub", op),
	}
}
