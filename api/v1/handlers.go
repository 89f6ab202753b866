package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/notify"
	"github.com/tinoosan/ftsd/internal/service"
)

// SessionHandler serves the upward-facing session control surface.
type SessionHandler struct {
	l   *slog.Logger
	svc service.Session
	hub *notify.Hub
}

type patchBody struct {
	Action     string `json:"action"`
	ReasonCode int    `json:"reasonCode,omitempty"`
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// context keys
type ctxKeyInvite struct{}
type ctxKeyPatch struct{}

func NewSessionHandler(l *slog.Logger, svc service.Session, hub *notify.Hub) *SessionHandler {
	return &SessionHandler{l: l, svc: svc, hub: hub}
}

func (sh *SessionHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	list := sh.svc.List(r.Context())
	if err := list.ToJSON(w); err != nil {
		markErr(w, err)
		http.Error(w, "Unable to marshal json", http.StatusInternalServerError)
		return
	}
}

func (sh *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sn, err := sh.svc.Get(r.Context(), vars["id"])
	if err != nil {
		markErr(w, err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = sn.ToJSON(w)
}

func (sh *SessionHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyInvite{})
	req, ok := v.(*service.InviteRequest)
	if !ok || req == nil {
		markErr(w, ErrInviteCtx)
		http.Error(w, ErrInviteCtx.Error(), http.StatusInternalServerError)
		return
	}

	sn, err := sh.svc.Invite(r.Context(), *req)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrInvalidSource), errors.Is(err, data.ErrMissingContact):
			markErr(w, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			markErr(w, err)
			http.Error(w, "failed to create session", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = sn.ToJSON(w)
}

func (sh *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	v := r.Context().Value(ctxKeyPatch{})
	body, ok := v.(patchBody)
	if !ok || body.Action == "" {
		markErr(w, ErrActionCtx)
		http.Error(w, ErrActionCtx.Error(), http.StatusInternalServerError)
		return
	}

	sn, err := sh.svc.Apply(r.Context(), vars["id"], service.Action(body.Action), data.RejectReason(body.ReasonCode))
	if err != nil {
		switch {
		case errors.Is(err, data.ErrNotFound):
			markErr(w, err)
			http.Error(w, "Not found", http.StatusNotFound)
		case errors.Is(err, data.ErrBadAction):
			markErr(w, err)
			http.Error(w, "Invalid action (allowed: accept|reject|start|pause|resume|cancel)", http.StatusBadRequest)
		case errors.Is(err, data.ErrInvalidTransition), errors.Is(err, data.ErrWorkerActive):
			markErr(w, err)
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			markErr(w, err)
			http.Error(w, "failed to update", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = sn.ToJSON(w)
}
