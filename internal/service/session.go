package service

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/registry"
	"github.com/tinoosan/ftsd/internal/report"
	"github.com/tinoosan/ftsd/internal/session"
	"github.com/tinoosan/ftsd/internal/transfer"
	"github.com/tinoosan/ftsd/internal/transfer/httpdl"
)

// Action is a lifecycle operation requested through the API surface.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
)

var AllowedActions = map[Action]bool{
	ActionAccept: true,
	ActionReject: true,
	ActionStart:  true,
	ActionPause:  true,
	ActionResume: true,
	ActionCancel: true,
}

// FileInfo describes the remote object announced by an invitation.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	Expiration time.Time `json:"expiration"`
}

// InviteRequest is an inbound file-sharing invitation as the signaling layer
// hands it up.
type InviteRequest struct {
	ID               string    `json:"id,omitempty"`
	Contact          string    `json:"contact"`
	RemoteInstanceID string    `json:"remoteInstanceId,omitempty"`
	ContributionID   string    `json:"contributionId,omitempty"`
	Group            bool      `json:"group"`
	Source           string    `json:"source"`
	File             FileInfo  `json:"file"`
	Icon             *FileInfo `json:"icon,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
}

// Session is the application-facing surface of the session core.
type Session interface {
	List(ctx context.Context) session.Snapshots
	Get(ctx context.Context, id string) (session.Snapshot, error)
	Invite(ctx context.Context, req InviteRequest) (session.Snapshot, error)
	Apply(ctx context.Context, id string, action Action, reason data.RejectReason) (session.Snapshot, error)
}

// Options fixes the per-deployment transfer parameters.
type Options struct {
	DownloadDir          string
	ChunkBytes           int
	CollisionPolicy      transfer.CollisionPolicy
	SendDisplayedReports bool
}

type sessionService struct {
	reg        *registry.Registry
	dispatcher *report.Dispatcher
	rep        transfer.Reporter
	client     *http.Client
	log        *slog.Logger
	opts       Options
}

// NewSession wires the service over the registry and dispatcher. The client
// is shared across engines; each session still gets its own engine instance.
func NewSession(log *slog.Logger, reg *registry.Registry, dispatcher *report.Dispatcher, rep transfer.Reporter, client *http.Client, opts Options) Session {
	if log == nil {
		log = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &sessionService{
		reg:        reg,
		dispatcher: dispatcher,
		rep:        rep,
		client:     client,
		log:        log,
		opts:       opts,
	}
}

func (ss *sessionService) List(_ context.Context) session.Snapshots {
	return ss.reg.List()
}

func (ss *sessionService) Get(_ context.Context, id string) (session.Snapshot, error) {
	s, ok := ss.reg.ByID(id)
	if !ok {
		return session.Snapshot{}, data.ErrNotFound
	}
	return s.Snapshot(), nil
}

// Invite registers a new terminating session in state Invited and returns its
// snapshot. The transfer does not begin until the invitation is accepted and
// started.
func (ss *sessionService) Invite(_ context.Context, req InviteRequest) (session.Snapshot, error) {
	if strings.TrimSpace(req.Source) == "" {
		return session.Snapshot{}, data.ErrInvalidSource
	}
	if strings.TrimSpace(req.Contact) == "" {
		return session.Snapshot{}, data.ErrMissingContact
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	name := req.File.Name
	if name == "" {
		name = filepath.Base(req.Source)
	}
	content := data.NewContent(name, req.File.Size, req.File.MimeType, req.File.Expiration)
	var icon *data.Content
	if req.Icon != nil {
		icon = data.NewContent(req.Icon.Name, req.Icon.Size, req.Icon.MimeType, req.Icon.Expiration)
	}

	engine := httpdl.New(ss.client, ss.rep,
		httpdl.WithChunkSize(ss.opts.ChunkBytes),
		httpdl.WithCollisionPolicy(ss.opts.CollisionPolicy),
		httpdl.WithLogger(ss.log),
	)

	s := session.New(session.Invitation{
		ID:               id,
		ContributionID:   req.ContributionID,
		Contact:          req.Contact,
		RemoteInstanceID: req.RemoteInstanceID,
		Group:            req.Group,
		Content:          content,
		Icon:             icon,
		Source:           req.Source,
		Dest:             filepath.Join(ss.opts.DownloadDir, id+"_"+name),
		Timestamp:        req.Timestamp,
	}, engine, ss.dispatcher, ss.reg, ss.rep, ss.log, session.Config{
		SendDisplayedReports: ss.opts.SendDisplayedReports,
	})
	ss.reg.Add(s)
	ss.log.Info("session invited", "id", id, "contact", req.Contact, "group", req.Group)
	return s.Snapshot(), nil
}

// Apply routes a lifecycle action to the live session. Accept also starts the
// transfer; callers that want the answer and the start decoupled can use the
// explicit start action.
func (ss *sessionService) Apply(_ context.Context, id string, action Action, reason data.RejectReason) (session.Snapshot, error) {
	if !AllowedActions[action] {
		return session.Snapshot{}, data.ErrBadAction
	}
	s, ok := ss.reg.ByID(id)
	if !ok {
		return session.Snapshot{}, data.ErrNotFound
	}

	var err error
	switch action {
	case ActionAccept:
		if err = s.Accept(); err == nil {
			err = s.Start()
		}
	case ActionReject:
		err = s.Reject(reason)
	case ActionStart:
		err = s.Start()
	case ActionPause:
		err = s.Pause()
	case ActionResume:
		err = s.Resume()
	case ActionCancel:
		err = s.Cancel()
	}
	if err != nil {
		return session.Snapshot{}, err
	}
	return s.Snapshot(), nil
}
