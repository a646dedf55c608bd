package http

import (
	"context"
	"net/http"
)

// RouterConfig wires handlers into the API router. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Batches    *BatchHandler
	Sessions   *SessionHandler
	Holidays   *HolidayHandler
	Health     func(ctx context.Context) error
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				handlerLogger(r.Context(), nil, "health", "check").WarnContext(r.Context(), "health check failed", "error", err)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Batches != nil {
		mux.HandleFunc("POST /batches/plan", cfg.Batches.Plan)
		mux.HandleFunc("POST /batches/commit", cfg.Batches.Commit)
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("GET /sessions", cfg.Sessions.List)
		mux.HandleFunc("GET /sessions/{id}", cfg.Sessions.Get)
		mux.HandleFunc("GET /sessions/{id}/events", cfg.Sessions.Events)
		mux.HandleFunc("POST /sessions/{id}/reschedule", cfg.Sessions.Reschedule)
		mux.HandleFunc("POST /sessions/{id}/substitute", cfg.Sessions.Substitute)
		mux.HandleFunc("POST /sessions/{id}/cancel", cfg.Sessions.Cancel)
		mux.HandleFunc("POST /sessions/{id}/complete", cfg.Sessions.Complete)
		mux.HandleFunc("POST /conflicts/check", cfg.Sessions.CheckConflicts)
	}

	if cfg.Holidays != nil {
		mux.HandleFunc("GET /holidays", cfg.Holidays.List)
		mux.HandleFunc("PUT /holidays/{date}", cfg.Holidays.Put)
		mux.HandleFunc("DELETE /holidays/{date}", cfg.Holidays.Delete)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
