package registry

import (
	"sync"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/metrics"
	"github.com/tinoosan/ftsd/internal/report"
	"github.com/tinoosan/ftsd/internal/session"
)

// Registry is the process-wide table of live sessions, keyed by session id
// and, for group transfers, by contribution id. Lookups happen from worker
// goroutines other than the one driving lifecycle transitions, so every
// access is guarded. A miss is not an error: it signals "no live
// counterpart".
//
// Counterpart chat sessions registered by the messaging layer live here too,
// which lets the Registry serve as the dispatcher's Finder.
type Registry struct {
	mu             sync.RWMutex
	byID           map[string]*session.Session
	byContribution map[string]*session.Session
	byContact      map[string]*session.Session

	groupChats    map[string]report.ChatSession
	oneToOneChats map[string]report.ChatSession
}

var _ report.Finder = (*Registry)(nil)
var _ session.Deregisterer = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		byID:           make(map[string]*session.Session),
		byContribution: make(map[string]*session.Session),
		byContact:      make(map[string]*session.Session),
		groupChats:     make(map[string]report.ChatSession),
		oneToOneChats:  make(map[string]report.ChatSession),
	}
}

// Add inserts a session on invitation.
func (r *Registry) Add(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID()] = s
	if cid := s.ContributionID(); cid != "" {
		r.byContribution[cid] = s
	}
	if c := s.Contact(); c != "" {
		r.byContact[c] = s
	}
	metrics.ActiveSessions.Set(float64(len(r.byID)))
}

// Deregister removes a session on any terminal transition. Idempotent.
func (r *Registry) Deregister(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, s.ID())
	if cid := s.ContributionID(); cid != "" && r.byContribution[cid] == s {
		delete(r.byContribution, cid)
	}
	if c := s.Contact(); c != "" && r.byContact[c] == s {
		delete(r.byContact, c)
	}
	metrics.ActiveSessions.Set(float64(len(r.byID)))
}

// ByID returns the live session with the given id.
func (r *Registry) ByID(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// ByContribution returns the live group session for a contribution id.
func (r *Registry) ByContribution(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byContribution[id]
	return s, ok
}

// ByContact returns the live one-to-one session for a remote contact.
func (r *Registry) ByContact(contact string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byContact[contact]
	return s, ok
}

// List returns a snapshot of all live sessions.
func (r *Registry) List() session.Snapshots {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(session.Snapshots, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s.Snapshot())
	}
	return out
}

// States returns the lifecycle state per live session id. Handy for tests and
// readiness introspection.
func (r *Registry) States() map[string]data.SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]data.SessionState, len(r.byID))
	for id, s := range r.byID {
		out[id] = s.State()
	}
	return out
}
