package transfer

import "sync/atomic"

// Status tracks one download task through the engine.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusPaused    Status = "Paused"
	StatusCancelled Status = "Cancelled"
	StatusComplete  Status = "Complete"
	StatusFailed    Status = "Failed"
)

// Task is the unit of work owned by the engine for the lifetime of one
// session: where to fetch from, where to land, and how far it has got.
// Offset only ever grows; a pause preserves it so a resume can re-issue the
// remote request with a byte range instead of starting over.
type Task struct {
	SessionID string
	Source    string
	Dest      string
	Total     int64
	// ETag is the resource identity marker captured on the first request and
	// validated on resume.
	ETag string

	offset atomic.Int64
	status atomic.Value // Status
}

// NewTask builds a pending task for one remote resource.
func NewTask(sessionID, source, dest string, total int64) *Task {
	t := &Task{SessionID: sessionID, Source: source, Dest: dest, Total: total}
	t.status.Store(StatusPending)
	return t
}

// Offset returns the number of bytes transferred so far.
func (t *Task) Offset() int64 { return t.offset.Load() }

// Advance grows the offset as bytes land. Engine implementations are the only
// callers; the offset never decreases.
func (t *Task) Advance(n int64) int64 { return t.offset.Add(n) }

// Status returns the task's current status.
func (t *Task) Status() Status { return t.status.Load().(Status) }

// SetStatus records the task's status. Engine implementations are the only
// callers.
func (t *Task) SetStatus(s Status) { t.status.Store(s) }
