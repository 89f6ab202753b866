package data

// SessionState is the lifecycle status of a file-transfer session.
type SessionState string

const (
	StateInvited     SessionState = "Invited"
	StateAccepted    SessionState = "Accepted"
	StateRejected    SessionState = "Rejected"
	StateDownloading SessionState = "Downloading"
	StatePaused      SessionState = "Paused"
	StateCompleted   SessionState = "Completed"
	StateCancelled   SessionState = "Cancelled"
	StateError       SessionState = "Failed"
)

// Terminal reports whether no further transition can leave this state.
func (s SessionState) Terminal() bool {
	switch s {
	case StateRejected, StateCompleted, StateCancelled, StateError:
		return true
	}
	return false
}

// Direction discriminates who initiated the session. The core in this
// repository drives terminating (inbound) sessions; the field exists so a
// registry entry carries the discriminator instead of a subclass hierarchy.
type Direction string

const (
	DirectionIncoming Direction = "Incoming"
	DirectionOutgoing Direction = "Outgoing"
)

// RejectReason codes carried by a reject answer.
type RejectReason int

const (
	RejectedByUser    RejectReason = 0
	RejectedByTimeout RejectReason = 1
	RejectedBySystem  RejectReason = 2
)
