package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/transfer"
)

// WaitAnswer blocks until Accept or Reject releases the answer gate, or the
// context expires. The gate is released exactly once for the session's
// lifetime. It returns true when the invitation was accepted.
func (s *Session) WaitAnswer(ctx context.Context) (bool, error) {
	select {
	case <-s.answered:
		return s.State() != data.StateRejected, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *Session) releaseAnswer() {
	s.answerOnce.Do(func() { close(s.answered) })
}

// Accept answers the invitation positively. Only valid from Invited.
func (s *Session) Accept() error {
	s.mu.Lock()
	if s.state != data.StateInvited {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("accept from %s: %w", st, data.ErrInvalidTransition)
	}
	s.state = data.StateAccepted
	s.mu.Unlock()

	s.releaseAnswer()
	s.log.Debug("invitation accepted")
	s.emit(transfer.EventAccepted, "", nil)
	return nil
}

// Reject declines the invitation, unblocks any waiter and deregisters the
// session. Only valid from Invited; a second reject returns
// ErrInvalidTransition deterministically.
func (s *Session) Reject(reason data.RejectReason) error {
	s.mu.Lock()
	if s.state != data.StateInvited {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("reject from %s: %w", st, data.ErrInvalidTransition)
	}
	s.state = data.StateRejected
	s.rejectReason = reason
	s.mu.Unlock()

	s.releaseAnswer()
	s.deregister()
	s.log.Debug("invitation rejected", "reason", int(reason))
	s.emit(transfer.EventRejected, fmt.Sprintf("reason=%d", reason), nil)
	return nil
}

// Start launches the transfer worker. Only valid from Accepted, and refused
// while a worker is already running.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != data.StateAccepted {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("start from %s: %w", st, data.ErrInvalidTransition)
	}
	if s.workerActive {
		s.mu.Unlock()
		return data.ErrWorkerActive
	}
	s.state = data.StateDownloading
	s.workerActive = true
	s.mu.Unlock()

	s.emit(transfer.EventStarted, "", nil)
	go s.run(false)
	return nil
}

// Pause suspends an active transfer, preserving the byte offset. The worker
// exits silently; no error report is emitted.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != data.StateDownloading {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("pause from %s: %w", st, data.ErrInvalidTransition)
	}
	s.state = data.StatePaused
	s.mu.Unlock()

	s.engine.PauseByUser()
	s.log.Debug("transfer paused", "offset", s.task.Offset())
	s.emit(transfer.EventPaused, "", s.progress())
	return nil
}

// Resume continues a paused transfer from the preserved offset with a fresh
// worker. Refused while the previous worker has not finished unwinding.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != data.StatePaused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("resume from %s: %w", st, data.ErrInvalidTransition)
	}
	if s.workerActive {
		s.mu.Unlock()
		return data.ErrWorkerActive
	}
	s.state = data.StateDownloading
	s.workerActive = true
	s.mu.Unlock()

	s.emit(transfer.EventResumed, "", s.progress())
	go s.run(true)
	return nil
}

// Cancel aborts the transfer from Downloading or Paused. The in-flight worker
// recognizes the abort as a non-error exit.
func (s *Session) Cancel() error {
	return s.abort("cancelled", s.engine.Cancel)
}

// Interrupt aborts the transfer without user intent, e.g. on session
// teardown. Observably identical to Cancel for subscribers.
func (s *Session) Interrupt() error {
	return s.abort("interrupted", s.engine.Interrupt)
}

func (s *Session) abort(detail string, signal func()) error {
	s.mu.Lock()
	if s.state != data.StateDownloading && s.state != data.StatePaused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%s from %s: %w", detail, st, data.ErrInvalidTransition)
	}
	s.state = data.StateCancelled
	s.mu.Unlock()

	signal()
	s.deregister()
	s.log.Debug("transfer aborted", "detail", detail, "offset", s.task.Offset())
	s.emit(transfer.EventCancelled, detail, s.progress())
	return nil
}

func (s *Session) deregister() {
	if s.reg != nil {
		s.reg.Deregister(s)
	}
}

func (s *Session) progress() *transfer.Progress {
	return &transfer.Progress{Transferred: s.task.Offset(), Total: s.task.Total}
}

func (s *Session) emit(t transfer.EventType, detail string, p *transfer.Progress) {
	s.rep.Report(transfer.Event{
		SessionID: s.id,
		Type:      t,
		Time:      time.Now(),
		Detail:    detail,
		Progress:  p,
	})
}
