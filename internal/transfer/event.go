package transfer

import (
	"time"

	"github.com/tinoosan/ftsd/internal/data"
)

// Event represents a state change or progress update from a session or its
// engine.
//
// Type indicates what kind of event occurred. For terminal events
// (Complete, Failed, Cancelled, Rejected) the hub journals the transition and
// drops the session's subscribers once drained. Progress events carry
// transient information and are fanned out but not journaled individually.
type Event struct {
	SessionID string         `json:"sessionId"`
	Type      EventType      `json:"type"`
	Time      time.Time      `json:"time"`
	Progress  *Progress      `json:"progress,omitempty"`
	ErrorCode data.ErrorCode `json:"errorCode,omitempty"`
	Detail    string         `json:"detail,omitempty"`
}

// EventType defines the set of events sessions may emit.
type EventType string

const (
	EventInvited   EventType = "Invited"
	EventAccepted  EventType = "Accepted"
	EventRejected  EventType = "Rejected"
	EventStarted   EventType = "Started"
	EventProgress  EventType = "Progress"
	EventPaused    EventType = "Paused"
	EventResumed   EventType = "Resumed"
	EventCancelled EventType = "Cancelled"
	EventComplete  EventType = "Complete"
	EventFailed    EventType = "Failed"
)

// Progress provides details about an in-flight transfer.
type Progress struct {
	Transferred int64 `json:"transferred"`
	Total       int64 `json:"total"`
}

// Terminal reports whether the event ends a lifecycle attempt.
func (t EventType) Terminal() bool {
	switch t {
	case EventRejected, EventCancelled, EventComplete, EventFailed:
		return true
	}
	return false
}
