package httpdl

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tinoosan/ftsd/internal/transfer"
)

const defaultChunkSize = 64 * 1024

// Engine implements transfer.Engine over plain HTTP with byte-range resume.
// One Engine instance serves exactly one session; the suspension flags are
// scoped to that session's transfer.
type Engine struct {
	client *http.Client
	rep    transfer.Reporter
	log    *slog.Logger

	chunk  int
	policy transfer.CollisionPolicy

	paused    atomic.Bool
	cancelled atomic.Bool
}

var _ transfer.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize sets the copy chunk size in bytes. The suspension flags are
// checked once per chunk, so this bounds how quickly a pause or cancel takes
// effect.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunk = n
		}
	}
}

// WithCollisionPolicy sets how an existing destination file is handled.
func WithCollisionPolicy(p transfer.CollisionPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger wires a shared application logger into the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an Engine using the provided HTTP client and reporter.
func New(client *http.Client, rep transfer.Reporter, opts ...Option) *Engine {
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	if rep == nil {
		rep = transfer.NopReporter{}
	}
	e := &Engine{
		client: client,
		rep:    rep,
		log:    slog.Default(),
		chunk:  defaultChunkSize,
		policy: transfer.CollisionError,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PauseByUser requests suspension at the next chunk boundary. Idempotent.
func (e *Engine) PauseByUser() { e.paused.Store(true) }

// Cancel requests a terminal abort at the next chunk boundary.
func (e *Engine) Cancel() { e.cancelled.Store(true) }

// Interrupt aborts the transfer on session teardown. The worker observes it
// the same way as a cancel.
func (e *Engine) Interrupt() { e.cancelled.Store(true) }

// Paused reports whether a user pause is pending or took effect.
func (e *Engine) Paused() bool { return e.paused.Load() }

// Cancelled reports whether a cancel or interrupt is pending or took effect.
func (e *Engine) Cancelled() bool { return e.cancelled.Load() }

func (e *Engine) progress(t *transfer.Task) {
	e.rep.Report(transfer.Event{
		SessionID: t.SessionID,
		Type:      transfer.EventProgress,
		Time:      time.Now(),
		Progress:  &transfer.Progress{Transferred: t.Offset(), Total: t.Total},
	})
}

func (e *Engine) String() string {
	return fmt.Sprintf("httpdl(chunk=%d,policy=%s)", e.chunk, e.policy)
}
