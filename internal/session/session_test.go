package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/report"
	"github.com/tinoosan/ftsd/internal/transfer"
)

type stubEngine struct {
	fetchFn  func(ctx context.Context, t *transfer.Task) error
	resumeFn func(ctx context.Context, t *transfer.Task) error

	paused    atomic.Bool
	cancelled atomic.Bool
}

func (s *stubEngine) Fetch(ctx context.Context, t *transfer.Task) error {
	if s.fetchFn != nil {
		return s.fetchFn(ctx, t)
	}
	return nil
}

func (s *stubEngine) ResumeFrom(ctx context.Context, t *transfer.Task) error {
	if s.resumeFn != nil {
		return s.resumeFn(ctx, t)
	}
	return nil
}

func (s *stubEngine) PauseByUser()    { s.paused.Store(true) }
func (s *stubEngine) Cancel()         { s.cancelled.Store(true) }
func (s *stubEngine) Interrupt()      { s.cancelled.Store(true) }
func (s *stubEngine) Paused() bool    { return s.paused.Load() }
func (s *stubEngine) Cancelled() bool { return s.cancelled.Load() }

type collectRep struct {
	mu     sync.Mutex
	events []transfer.Event
}

func (c *collectRep) Report(e transfer.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collectRep) count(t transfer.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (c *collectRep) last(t transfer.EventType) (transfer.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == t {
			return c.events[i], true
		}
	}
	return transfer.Event{}, false
}

type stubReg struct {
	mu      sync.Mutex
	removed []string
}

func (r *stubReg) Deregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, s.ID())
}

func (r *stubReg) removedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

// countingControl records out-of-band dispatches.
type countingControl struct {
	mu    sync.Mutex
	sends []data.DeliveryReport
}

func (c *countingControl) SendImmediate(_ context.Context, _ string, r data.DeliveryReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, r)
	return nil
}

func (c *countingControl) sent() []data.DeliveryReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]data.DeliveryReport(nil), c.sends...)
}

type emptyFinder struct{}

func (emptyFinder) GroupChatByContribution(string) (report.ChatSession, bool) { return nil, false }
func (emptyFinder) OneToOneChatByContact(string) (report.ChatSession, bool)  { return nil, false }

func newTestSession(t *testing.T, eng transfer.Engine, rep transfer.Reporter, reg Deregisterer, ctl report.ControlSender, group bool, cfg Config) *Session {
	t.Helper()
	var d *report.Dispatcher
	if ctl != nil {
		d = report.NewDispatcher(nil, emptyFinder{}, ctl)
	}
	return New(Invitation{
		ID:               "ft-1",
		ContributionID:   "contrib-1",
		Contact:          "+33612345678",
		RemoteInstanceID: "urn:gruu:instance-1",
		Group:            group,
		Content:          data.NewContent("photo.jpg", 1000, "image/jpeg", time.Now().Add(time.Hour)),
		Source:           "http://content.example/photo.jpg",
		Dest:             t.TempDir() + "/photo.jpg",
	}, eng, d, reg, rep, nil, cfg)
}

func waitState(t *testing.T, s *Session, want data.SessionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}

func waitWorkerIdle(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		idle := !s.workerActive
		s.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("worker still active")
}

func TestAcceptOnlyFromInvited(t *testing.T) {
	s := newTestSession(t, &stubEngine{}, nil, nil, nil, false, Config{})

	if err := s.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if s.State() != data.StateAccepted {
		t.Fatalf("state = %s", s.State())
	}
	if err := s.Accept(); !errors.Is(err, data.ErrInvalidTransition) {
		t.Fatalf("second Accept = %v, want ErrInvalidTransition", err)
	}
	accepted, err := s.WaitAnswer(context.Background())
	if err != nil || !accepted {
		t.Fatalf("WaitAnswer = %v, %v", accepted, err)
	}
}

func TestRejectUnblocksWaiterAndDeregisters(t *testing.T) {
	reg := &stubReg{}
	s := newTestSession(t, &stubEngine{}, nil, reg, nil, false, Config{})

	answered := make(chan bool, 1)
	go func() {
		accepted, _ := s.WaitAnswer(context.Background())
		answered <- accepted
	}()

	if err := s.Reject(data.RejectedByUser); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	select {
	case accepted := <-answered:
		if accepted {
			t.Fatalf("waiter saw accept after reject")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("waiter not released")
	}
	if s.State() != data.StateRejected {
		t.Fatalf("state = %s", s.State())
	}
	if got := reg.removedIDs(); len(got) != 1 || got[0] != "ft-1" {
		t.Fatalf("session not deregistered: %v", got)
	}
	if err := s.Reject(data.RejectedByUser); !errors.Is(err, data.ErrInvalidTransition) {
		t.Fatalf("second Reject = %v, want ErrInvalidTransition", err)
	}
}

func TestStartRequiresAccepted(t *testing.T) {
	s := newTestSession(t, &stubEngine{}, nil, nil, nil, false, Config{})
	if err := s.Start(); !errors.Is(err, data.ErrInvalidTransition) {
		t.Fatalf("Start from Invited = %v, want ErrInvalidTransition", err)
	}
}

func TestSingleWorkerPerSession(t *testing.T) {
	release := make(chan struct{})
	eng := &stubEngine{}
	eng.fetchFn = func(ctx context.Context, task *transfer.Task) error {
		<-release
		return transfer.ErrStopped
	}
	rep := &collectRep{}
	s := newTestSession(t, eng, rep, nil, nil, false, Config{})

	if err := s.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Park the session in Paused while the worker is still unwinding.
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Resume(); !errors.Is(err, data.ErrWorkerActive) {
		t.Fatalf("Resume with live worker = %v, want ErrWorkerActive", err)
	}

	close(release)
	waitWorkerIdle(t, s)
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume after worker exit: %v", err)
	}
	waitWorkerIdle(t, s)
}

func TestPauseSuppressesErrorReport(t *testing.T) {
	eng := &stubEngine{}
	paused := make(chan struct{})
	eng.fetchFn = func(ctx context.Context, task *transfer.Task) error {
		<-paused
		// Whatever surfaces from the transfer layer mid-pause must stay
		// silent downstream.
		return errors.New("connection reset by peer")
	}
	rep := &collectRep{}
	s := newTestSession(t, eng, rep, nil, nil, false, Config{})

	_ = s.Accept()
	_ = s.Start()
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	close(paused)
	waitWorkerIdle(t, s)

	if n := rep.count(transfer.EventFailed); n != 0 {
		t.Fatalf("got %d Failed events after pause, want 0", n)
	}
	if s.State() != data.StatePaused {
		t.Fatalf("state = %s, want Paused", s.State())
	}
}

func TestCancelSuppressesErrorReport(t *testing.T) {
	eng := &stubEngine{}
	cancelled := make(chan struct{})
	eng.fetchFn = func(ctx context.Context, task *transfer.Task) error {
		<-cancelled
		return errors.New("use of closed network connection")
	}
	rep := &collectRep{}
	reg := &stubReg{}
	s := newTestSession(t, eng, rep, reg, nil, false, Config{})

	_ = s.Accept()
	_ = s.Start()
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(cancelled)
	waitWorkerIdle(t, s)

	if n := rep.count(transfer.EventFailed); n != 0 {
		t.Fatalf("got %d Failed events after cancel, want 0", n)
	}
	if s.State() != data.StateCancelled {
		t.Fatalf("state = %s, want Cancelled", s.State())
	}
	if len(reg.removedIDs()) == 0 {
		t.Fatalf("cancelled session not deregistered")
	}
	if n := rep.count(transfer.EventCancelled); n != 1 {
		t.Fatalf("got %d Cancelled events, want 1", n)
	}
}

func TestCompletionFinalizesAndReportsDisplayed(t *testing.T) {
	eng := &stubEngine{}
	rep := &collectRep{}
	reg := &stubReg{}
	ctl := &countingControl{}
	s := newTestSession(t, eng, rep, reg, ctl, false, Config{SendDisplayedReports: true})

	_ = s.Accept()
	_ = s.Start()
	waitState(t, s, data.StateCompleted)
	waitWorkerIdle(t, s)

	if loc := s.Content().Location(); loc == "" {
		t.Fatalf("content location not finalized")
	}
	if n := rep.count(transfer.EventComplete); n != 1 {
		t.Fatalf("got %d Complete events, want exactly 1", n)
	}
	if n := rep.count(transfer.EventFailed); n != 0 {
		t.Fatalf("completed session also failed")
	}
	sent := ctl.sent()
	if len(sent) != 1 {
		t.Fatalf("got %d delivery reports, want exactly 1", len(sent))
	}
	if sent[0].Status != data.DeliveryDisplayed || sent[0].MessageID != "ft-1" {
		t.Fatalf("unexpected report: %+v", sent[0])
	}
	if len(reg.removedIDs()) != 1 {
		t.Fatalf("completed session not deregistered")
	}
}

func TestGroupTransferSkipsDisplayedReport(t *testing.T) {
	ctl := &countingControl{}
	s := newTestSession(t, &stubEngine{}, nil, nil, ctl, true, Config{SendDisplayedReports: true})

	_ = s.Accept()
	_ = s.Start()
	waitState(t, s, data.StateCompleted)
	waitWorkerIdle(t, s)

	if len(ctl.sent()) != 0 {
		t.Fatalf("group transfer must not emit a displayed report")
	}
}

func TestDisplayedReportDisabledBySetting(t *testing.T) {
	ctl := &countingControl{}
	s := newTestSession(t, &stubEngine{}, nil, nil, ctl, false, Config{SendDisplayedReports: false})

	_ = s.Accept()
	_ = s.Start()
	waitState(t, s, data.StateCompleted)
	waitWorkerIdle(t, s)

	if len(ctl.sent()) != 0 {
		t.Fatalf("displayed report sent although disabled")
	}
}

func TestUnrecoverableFailureReportedOnce(t *testing.T) {
	eng := &stubEngine{}
	eng.fetchFn = func(ctx context.Context, task *transfer.Task) error {
		return data.NewTransferError(data.CodeTransportFailure, errors.New("tls handshake timeout"))
	}
	rep := &collectRep{}
	reg := &stubReg{}
	s := newTestSession(t, eng, rep, reg, nil, false, Config{})

	_ = s.Accept()
	_ = s.Start()
	waitState(t, s, data.StateError)
	waitWorkerIdle(t, s)

	if n := rep.count(transfer.EventFailed); n != 1 {
		t.Fatalf("got %d Failed events, want exactly 1", n)
	}
	e, _ := rep.last(transfer.EventFailed)
	if e.ErrorCode != data.CodeTransportFailure {
		t.Fatalf("error code = %s", e.ErrorCode)
	}
	if n := rep.count(transfer.EventComplete); n != 0 {
		t.Fatalf("failed session also completed")
	}
	if len(reg.removedIDs()) != 1 {
		t.Fatalf("failed session not deregistered")
	}
}

func TestWorkerPanicContained(t *testing.T) {
	eng := &stubEngine{}
	eng.fetchFn = func(ctx context.Context, task *transfer.Task) error {
		panic("nil map write somewhere deep")
	}
	rep := &collectRep{}
	s := newTestSession(t, eng, rep, nil, nil, false, Config{})

	_ = s.Accept()
	_ = s.Start()
	waitState(t, s, data.StateError)
	waitWorkerIdle(t, s)

	e, ok := rep.last(transfer.EventFailed)
	if !ok {
		t.Fatalf("no Failed event after panic")
	}
	if e.ErrorCode != data.CodeUnexpectedFault {
		t.Fatalf("error code = %s, want UnexpectedFault", e.ErrorCode)
	}
}

func TestPauseOnlyFromDownloading(t *testing.T) {
	s := newTestSession(t, &stubEngine{}, nil, nil, nil, false, Config{})
	if err := s.Pause(); !errors.Is(err, data.ErrInvalidTransition) {
		t.Fatalf("Pause from Invited = %v, want ErrInvalidTransition", err)
	}
}
