package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/tinoosan/ftsd/api/v1"
	"github.com/tinoosan/ftsd/internal/auth"
	"github.com/tinoosan/ftsd/internal/notify"
	"github.com/tinoosan/ftsd/internal/service"
)

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, sessionSvc service.Session, hub *notify.Hub) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	sessionHandler := v1.NewSessionHandler(logger, sessionSvc, hub)

	r.Use(v1.RequestID)
	r.Use(sessionHandler.Log)
	r.Use(auth.Middleware)

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/sessions", sessionHandler.GetSessions)
	get.HandleFunc("/sessions/{id}", sessionHandler.GetSession)
	get.HandleFunc("/sessions/{id}/events", sessionHandler.Events)
	get.HandleFunc("/events", sessionHandler.Events)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/sessions", sessionHandler.AddSession)
	post.Use(v1.MiddlewareInviteValidation)

	// PATCHes
	patch := api.Methods("PATCH").Subrouter()
	patch.HandleFunc("/sessions/{id}", sessionHandler.UpdateSession)
	patch.Use(v1.MiddlewarePatchAction)

	return r
}
