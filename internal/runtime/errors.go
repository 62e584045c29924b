package runtime

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes runtime stub errors.
type RuntimeErrorCode string

const (
	// ErrCodeIllegalState indicates a singleton lifecycle violation
	// (double install, or a lookup with nothing installed).
	ErrCodeIllegalState RuntimeErrorCode = "ILLEGAL_STATE"

	// ErrCodeUnsupportedService indicates a lookup for a service the
	// stub does not model at all.
	ErrCodeUnsupportedService RuntimeErrorCode = "UNSUPPORTED_SERVICE"

	// ErrCodeUnsupportedOperation indicates an operation was invoked on an
	// inert service double.
	ErrCodeUnsupportedOperation RuntimeErrorCode = "UNSUPPORTED_OPERATION"
)

// RuntimeError is returned for runtime stub failures.
//
// Setup errors (double install) are fatal to the current test and are never
// retried; lookup errors propagate through the script as a production error
// would and become script faults unless the script handles them.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Service ServiceKind // affected service, if any
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s: %s (service=%s)", e.Code, e.Message, e.Service)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIllegalState returns true if the error is a singleton lifecycle violation.
// Uses errors.As to handle wrapped errors.
func IsIllegalState(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeIllegalState
	}
	return false
}

// IsUnsupportedService returns true if the error is an unknown-service lookup.
func IsUnsupportedService(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnsupportedService
	}
	return false
}

// NewIllegalStateError creates a RuntimeError for a lifecycle violation.
func NewIllegalStateError(message string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeIllegalState, Message: message}
}

// NewUnsupportedServiceError creates a RuntimeError for an unknown service kind.
func NewUnsupportedServiceError(kind ServiceKind) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnsupportedService,
		Message: "service is not modeled by the harness runtime",
		Service: kind,
	}
}
