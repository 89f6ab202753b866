package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tinoosan/ftsd/internal/journal"
	"github.com/tinoosan/ftsd/internal/transfer"
)

type memSink struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memSink) Append(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memSink) Close() error { return nil }

func (m *memSink) all() []journal.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]journal.Entry(nil), m.entries...)
}

func event(sessionID string, t transfer.EventType) transfer.Event {
	return transfer.Event{SessionID: sessionID, Type: t, Time: time.Now()}
}

func recv(t *testing.T, ch <-chan transfer.Event) transfer.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return transfer.Event{}
	}
}

func TestSubscribeReceivesOwnSessionOnly(t *testing.T) {
	events := make(chan transfer.Event, 8)
	h := New(nil, nil, events)
	h.Run()
	defer h.Stop()

	ch, detach := h.Subscribe("ft-1", 8)
	defer detach()

	events <- event("ft-2", transfer.EventStarted)
	events <- event("ft-1", transfer.EventStarted)

	e := recv(t, ch)
	if e.SessionID != "ft-1" {
		t.Fatalf("received event for %s", e.SessionID)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWildcardSubscriberSeesEverything(t *testing.T) {
	events := make(chan transfer.Event, 8)
	h := New(nil, nil, events)
	h.Run()
	defer h.Stop()

	ch, detach := h.Subscribe("", 8)
	defer detach()

	events <- event("ft-1", transfer.EventStarted)
	events <- event("ft-2", transfer.EventComplete)

	first := recv(t, ch)
	second := recv(t, ch)
	if first.SessionID != "ft-1" || second.SessionID != "ft-2" {
		t.Fatalf("got %s then %s", first.SessionID, second.SessionID)
	}
}

func TestJournalSkipsProgressEvents(t *testing.T) {
	events := make(chan transfer.Event, 8)
	sink := &memSink{}
	h := New(nil, sink, events)
	h.Run()

	events <- event("ft-1", transfer.EventStarted)
	events <- event("ft-1", transfer.EventProgress)
	events <- event("ft-1", transfer.EventComplete)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(sink.all()) < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	h.Stop()

	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("journaled %d entries, want 2", len(got))
	}
	if got[0].Type != transfer.EventStarted || got[1].Type != transfer.EventComplete {
		t.Fatalf("journaled %s then %s", got[0].Type, got[1].Type)
	}
}

func TestDetachClosesChannel(t *testing.T) {
	events := make(chan transfer.Event, 8)
	h := New(nil, nil, events)
	h.Run()
	defer h.Stop()

	ch, detach := h.Subscribe("ft-1", 8)
	detach()
	detach()

	if _, open := <-ch; open {
		t.Fatalf("channel still open after detach")
	}

	// Events after detach must not panic the hub.
	events <- event("ft-1", transfer.EventStarted)
	time.Sleep(20 * time.Millisecond)
}

func TestSlowSubscriberDoesNotStallHub(t *testing.T) {
	events := make(chan transfer.Event, 64)
	h := New(nil, nil, events)
	h.Run()
	defer h.Stop()

	slow, detachSlow := h.Subscribe("ft-1", 1)
	defer detachSlow()
	_ = slow

	fast, detachFast := h.Subscribe("ft-1", 64)
	defer detachFast()

	for i := 0; i < 10; i++ {
		events <- event("ft-1", transfer.EventProgress)
	}
	events <- event("ft-1", transfer.EventComplete)

	deadline := time.Now().Add(2 * time.Second)
	seen := 0
	for time.Now().Before(deadline) {
		select {
		case e := <-fast:
			seen++
			if e.Type == transfer.EventComplete {
				return
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatalf("fast subscriber starved after %d events", seen)
}
