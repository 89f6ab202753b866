package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/fp"
	"github.com/tinoosan/ftsd/internal/metrics"
)

// ChatSession is a live counterpart conversation able to carry a delivery
// report over its established in-session media path.
type ChatSession interface {
	MediaEstablished() bool
	SendDeliveryStatus(ctx context.Context, contact, messageID string, status data.DeliveryStatus, ts time.Time) error
}

// Finder locates a live counterpart chat session: by contribution id for
// group context, by remote contact for one-to-one. Misses are not errors.
type Finder interface {
	GroupChatByContribution(id string) (ChatSession, bool)
	OneToOneChatByContact(contact string) (ChatSession, bool)
}

// ControlSender delivers a report as a standalone out-of-band control
// message addressed with the remote instance identifier.
type ControlSender interface {
	SendImmediate(ctx context.Context, remoteInstanceID string, r data.DeliveryReport) error
}

// Request carries everything the dispatcher needs to route one report.
type Request struct {
	Contact          string
	MessageID        string
	Status           data.DeliveryStatus
	Timestamp        time.Time
	ContributionID   string
	RemoteInstanceID string
	Group            bool
}

// Dispatcher routes delivery reports over one of two transports. The choice
// is an internal optimization: callers never see which path carried the
// report, only whether dispatch succeeded.
type Dispatcher struct {
	finder  Finder
	control ControlSender
	log     *slog.Logger

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewDispatcher creates a Dispatcher. The finder and control sender are
// injected so nothing here reaches into global state.
func NewDispatcher(log *slog.Logger, finder Finder, control ControlSender) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		finder:  finder,
		control: control,
		log:     log,
		sent:    make(map[string]struct{}),
	}
}

// Report dispatches one delivery report. A (message id, status) pair already
// dispatched is a no-op; duplicates never reach either transport.
func (d *Dispatcher) Report(ctx context.Context, req Request) error {
	key := fp.Fingerprint(req.MessageID, string(req.Status))
	d.mu.Lock()
	if _, dup := d.sent[key]; dup {
		d.mu.Unlock()
		d.log.Debug("delivery report already dispatched", "msg_id", req.MessageID, "status", req.Status)
		return nil
	}
	d.sent[key] = struct{}{}
	d.mu.Unlock()

	r := data.DeliveryReport{
		MessageID: req.MessageID,
		Contact:   req.Contact,
		Status:    req.Status,
		Timestamp: req.Timestamp,
	}

	if cs, ok := d.counterpart(req); ok && cs.MediaEstablished() {
		r.Transport = data.TransportInSession
		if err := cs.SendDeliveryStatus(ctx, req.Contact, req.MessageID, req.Status, req.Timestamp); err != nil {
			d.release(key)
			return err
		}
		d.log.Debug("delivery report sent in-session", "msg_id", req.MessageID, "status", req.Status)
		metrics.DeliveryReports.WithLabelValues(string(r.Transport), string(r.Status)).Inc()
		return nil
	}

	r.Transport = data.TransportOutOfBand
	if err := d.control.SendImmediate(ctx, req.RemoteInstanceID, r); err != nil {
		d.release(key)
		return err
	}
	d.log.Debug("delivery report sent out-of-band", "msg_id", req.MessageID, "status", req.Status)
	metrics.DeliveryReports.WithLabelValues(string(r.Transport), string(r.Status)).Inc()
	return nil
}

func (d *Dispatcher) counterpart(req Request) (ChatSession, bool) {
	if d.finder == nil {
		return nil, false
	}
	if req.Group {
		return d.finder.GroupChatByContribution(req.ContributionID)
	}
	return d.finder.OneToOneChatByContact(req.Contact)
}

// release forgets a dedup key after a failed dispatch so a later retry is not
// mistaken for a duplicate.
func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.sent, key)
	d.mu.Unlock()
}
