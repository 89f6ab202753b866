package data

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no live session matches an identifier.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidTransition is returned when a lifecycle operation is invoked
	// from a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrWorkerActive is returned when a start or resume is refused because a
	// transfer worker is already running for the session.
	ErrWorkerActive = errors.New("transfer worker already running")
	// ErrBadAction is returned for an unknown lifecycle action.
	ErrBadAction = errors.New("invalid action")
	// ErrInvalidSource is returned when an invitation carries no usable
	// remote resource address.
	ErrInvalidSource = errors.New("source is required")
	// ErrMissingContact is returned when an invitation carries no remote
	// party identifier.
	ErrMissingContact = errors.New("contact is required")
)

// ErrorCode classifies an unrecoverable transfer failure.
type ErrorCode string

const (
	// CodeTransferIncomplete covers an absent resource or a fetch that ended
	// short of the declared size.
	CodeTransferIncomplete ErrorCode = "TransferIncomplete"
	// CodeTransportFailure covers network-level I/O failures.
	CodeTransportFailure ErrorCode = "TransportFailure"
	// CodeResourceChanged covers a resume whose remote resource no longer
	// matches the original request.
	CodeResourceChanged ErrorCode = "ResourceChanged"
	// CodeUnexpectedFault covers any fault not anticipated by the above,
	// including panics contained at the worker boundary.
	CodeUnexpectedFault ErrorCode = "UnexpectedFault"
)

// TransferError is a classified download failure. It is the only error shape
// that crosses the session boundary to subscribers.
type TransferError struct {
	Code ErrorCode
	Err  error
}

func NewTransferError(code ErrorCode, err error) *TransferError {
	return &TransferError{Code: code, Err: err}
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Classify wraps err into a TransferError unless it already is one.
func Classify(err error, fallback ErrorCode) *TransferError {
	var te *TransferError
	if errors.As(err, &te) {
		return te
	}
	return NewTransferError(fallback, err)
}
