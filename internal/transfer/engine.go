package transfer

import (
	"context"
	"errors"
)

// ErrStopped is returned by Fetch/ResumeFrom when the transfer loop exited
// because a pause, cancel or interrupt was requested. Callers must consult
// Paused/Cancelled to tell the two apart; neither is an error condition.
var ErrStopped = errors.New("transfer stopped by request")

// ErrResourceChanged is returned when a resume finds the remote resource no
// longer matches the identity captured by the original request. The engine
// never silently restarts from byte zero.
var ErrResourceChanged = errors.New("remote resource changed since original request")

// Engine performs the resumable transfer for exactly one session. It exposes
// cooperative suspension primitives; the flags are checked at every chunk
// boundary so a pause or cancel takes effect within one chunk.
type Engine interface {
	// Fetch transfers the resource from byte zero, updating the task offset
	// as bytes land.
	Fetch(ctx context.Context, t *Task) error
	// ResumeFrom re-issues the remote request with a byte range starting at
	// the preserved offset, validating resource identity first.
	ResumeFrom(ctx context.Context, t *Task) error
	// PauseByUser requests suspension, preserving the offset. Idempotent.
	PauseByUser()
	// Cancel requests a terminal abort.
	Cancel()
	// Interrupt aborts the transfer without user intent, e.g. on session
	// teardown. Observably equivalent to Cancel for the worker.
	Interrupt()
	// Paused and Cancelled stay observable after Fetch/ResumeFrom return so
	// the worker can choose silence over error reporting.
	Paused() bool
	Cancelled() bool
}
