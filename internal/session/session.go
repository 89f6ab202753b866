package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/report"
	"github.com/tinoosan/ftsd/internal/transfer"
)

// Config carries the per-deployment switches a session consults.
type Config struct {
	// SendDisplayedReports enables the "displayed" delivery report on
	// successful one-to-one transfers.
	SendDisplayedReports bool
}

// Deregisterer removes a session from the process-wide registry. It is
// injected so the state machine never reaches into global state.
type Deregisterer interface {
	Deregister(s *Session)
}

// Invitation is everything an inbound file-sharing invitation carries.
type Invitation struct {
	ID               string
	ContributionID   string
	Contact          string
	RemoteInstanceID string
	Group            bool
	Content          *data.Content
	Icon             *data.Content
	Source           string
	Dest             string
	Timestamp        time.Time
}

// Session drives one terminating file transfer end to end: invitation answer,
// download, pause/resume/cancel, completion and delivery reporting. Lifecycle
// transitions are serialized through the state guard; the worker goroutine
// and external callers never mutate state concurrently.
type Session struct {
	id               string
	contributionID   string
	contact          string
	remoteInstanceID string
	group            bool
	direction        data.Direction
	createdAt        time.Time
	invitedAt        time.Time

	content *data.Content
	icon    *data.Content
	task    *transfer.Task

	engine     transfer.Engine
	dispatcher *report.Dispatcher
	reg        Deregisterer
	rep        transfer.Reporter
	log        *slog.Logger
	cfg        Config

	mu           sync.Mutex
	state        data.SessionState
	workerActive bool
	rejectReason data.RejectReason

	answered   chan struct{}
	answerOnce sync.Once
}

// New creates a session in state Invited. The engine instance must be
// dedicated to this session; its suspension flags are session-scoped.
func New(inv Invitation, engine transfer.Engine, dispatcher *report.Dispatcher, reg Deregisterer, rep transfer.Reporter, log *slog.Logger, cfg Config) *Session {
	if log == nil {
		log = slog.Default()
	}
	if rep == nil {
		rep = transfer.NopReporter{}
	}
	now := time.Now()
	ts := inv.Timestamp
	if ts.IsZero() {
		ts = now
	}
	s := &Session{
		id:               inv.ID,
		contributionID:   inv.ContributionID,
		contact:          inv.Contact,
		remoteInstanceID: inv.RemoteInstanceID,
		group:            inv.Group,
		direction:        data.DirectionIncoming,
		createdAt:        now,
		invitedAt:        ts,
		content:          inv.Content,
		icon:             inv.Icon,
		task:             transfer.NewTask(inv.ID, inv.Source, inv.Dest, contentSize(inv.Content)),
		engine:           engine,
		dispatcher:       dispatcher,
		reg:              reg,
		rep:              rep,
		log:              log.With("session", inv.ID),
		cfg:              cfg,
		state:            data.StateInvited,
		answered:         make(chan struct{}),
	}
	s.emit(transfer.EventInvited, "", nil)
	return s
}

func contentSize(c *data.Content) int64 {
	if c == nil {
		return 0
	}
	return c.Size
}

func (s *Session) ID() string               { return s.id }
func (s *Session) ContributionID() string   { return s.contributionID }
func (s *Session) Contact() string          { return s.contact }
func (s *Session) RemoteInstanceID() string { return s.remoteInstanceID }
func (s *Session) Group() bool              { return s.group }
func (s *Session) Direction() data.Direction { return s.direction }
func (s *Session) Content() *data.Content   { return s.content }
func (s *Session) Icon() *data.Content      { return s.icon }
func (s *Session) Task() *transfer.Task     { return s.task }

// State returns the current lifecycle state.
func (s *Session) State() data.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot is a read-only view of the session for the API surface.
type Snapshot struct {
	ID               string            `json:"id"`
	ContributionID   string            `json:"contributionId,omitempty"`
	Contact          string            `json:"contact"`
	RemoteInstanceID string            `json:"remoteInstanceId,omitempty"`
	Group            bool              `json:"group"`
	Direction        data.Direction    `json:"direction"`
	State            data.SessionState `json:"state"`
	CreatedAt        time.Time         `json:"createdAt"`
	InvitedAt        time.Time         `json:"invitedAt"`
	Content          *data.Content     `json:"content"`
	Icon             *data.Content     `json:"icon,omitempty"`
	Transferred      int64             `json:"transferred"`
	Total            int64             `json:"total"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return Snapshot{
		ID:               s.id,
		ContributionID:   s.contributionID,
		Contact:          s.contact,
		RemoteInstanceID: s.remoteInstanceID,
		Group:            s.group,
		Direction:        s.direction,
		State:            state,
		CreatedAt:        s.createdAt,
		InvitedAt:        s.invitedAt,
		Content:          s.content,
		Icon:             s.icon,
		Transferred:      s.task.Offset(),
		Total:            s.task.Total,
	}
}

func (sn Snapshot) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(sn) }

// Snapshots is a list view for the collection endpoint.
type Snapshots []Snapshot

func (sns Snapshots) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(sns) }
