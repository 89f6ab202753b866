package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/ftsd/internal/journal"
	"github.com/tinoosan/ftsd/internal/metrics"
	"github.com/tinoosan/ftsd/internal/transfer"
)

// Hub consumes session and engine events and fans them out: state changes go
// to the journal sink, everything goes to subscribers and metrics. It is the
// single consumer of the process-wide event channel.
type Hub struct {
	events <-chan transfer.Event
	sink   journal.Sink
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	stop chan struct{}
	wg   sync.WaitGroup

	mu   sync.Mutex
	subs map[string]map[chan transfer.Event]struct{}
}

// New creates a Hub draining events into the given journal sink.
func New(log *slog.Logger, sink journal.Sink, events <-chan transfer.Event) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = journal.NopSink{}
	}
	return &Hub{
		events: events,
		sink:   sink,
		log:    log,
		ctx:    context.Background(),
		subs:   make(map[string]map[chan transfer.Event]struct{}),
	}
}

// Run starts the fanout loop.
func (h *Hub) Run() {
	h.stop = make(chan struct{})
	h.ctx, h.cancel = context.WithCancel(h.ctx)
	// Tag this run with a stable operation_id for easier correlation.
	opID := uuid.NewString()
	h.log = h.log.With("operation_id", opID)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-h.stop:
				return
			case e, ok := <-h.events:
				if !ok {
					return
				}
				h.handle(e)
			}
		}
	}()
}

// Stop terminates the fanout loop.
func (h *Hub) Stop() {
	if h.stop != nil {
		close(h.stop)
		if h.cancel != nil {
			h.cancel()
		}
		h.wg.Wait()
	}
}

// Subscribe returns a buffered channel of events for one session, or for all
// sessions when sessionID is empty. The returned func detaches the
// subscription; the channel is closed on detach.
func (h *Hub) Subscribe(sessionID string, buffer int) (<-chan transfer.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan transfer.Event, buffer)
	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan transfer.Event]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, detach
}

func (h *Hub) handle(e transfer.Event) {
	metrics.SessionEvents.WithLabelValues(strings.ToLower(string(e.Type))).Inc()

	// Progress is transient; everything else is a state change worth keeping.
	if e.Type != transfer.EventProgress {
		if err := h.sink.Append(h.ctx, journal.FromEvent(e)); err != nil {
			metrics.JournalErrors.Inc()
			h.log.Error("journal append", "session", e.SessionID, "type", e.Type, "err", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range []string{e.SessionID, ""} {
		for ch := range h.subs[key] {
			select {
			case ch <- e:
			default:
				// Slow subscriber: drop rather than stall the hub.
			}
		}
	}
}
