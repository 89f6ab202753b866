package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/transfer"
)

// Entry is one appended record of a session or transfer state change.
type Entry struct {
	Time      time.Time          `json:"time"`
	SessionID string             `json:"sessionId"`
	Type      transfer.EventType `json:"type"`
	Detail    string             `json:"detail,omitempty"`
	ErrorCode data.ErrorCode     `json:"errorCode,omitempty"`
	Offset    int64              `json:"offset,omitempty"`
	Total     int64              `json:"total,omitempty"`
}

// FromEvent maps a hub event to a journal entry.
func FromEvent(e transfer.Event) Entry {
	en := Entry{
		Time:      e.Time,
		SessionID: e.SessionID,
		Type:      e.Type,
		Detail:    e.Detail,
		ErrorCode: e.ErrorCode,
	}
	if e.Progress != nil {
		en.Offset = e.Progress.Transferred
		en.Total = e.Progress.Total
	}
	return en
}

// Sink is a write-only, append-only destination for journal entries. A
// failing sink must never abort a session; callers log and move on.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// FileSink appends newline-delimited JSON entries to a rotating file.
type FileSink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates a rotating file sink at path. Size caps and retention
// follow lumberjack defaults unless maxSizeMB/maxBackups are positive.
func NewFileSink(path string, maxSizeMB, maxBackups int) *FileSink {
	l := &lumberjack.Logger{Filename: path}
	if maxSizeMB > 0 {
		l.MaxSize = maxSizeMB
	}
	if maxBackups > 0 {
		l.MaxBackups = maxBackups
	}
	return &FileSink{out: l}
}

func (s *FileSink) Append(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.out.Write(b)
	return err
}

func (s *FileSink) Close() error { return s.out.Close() }

// NopSink discards entries. Used when journaling is disabled.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) Append(context.Context, Entry) error { return nil }
func (NopSink) Close() error                        { return nil }
