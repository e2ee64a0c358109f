// Package server is the HTTP API of the session service that the desktop
// timer records Pomodoro sessions against.
package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"focusmatrix/internal/domain"
)

// Dependencies collects what the handlers need.
type Dependencies struct {
	Tasks    domain.TaskRepository
	Sessions domain.SessionRepository
	Auth     *Authenticator
	Health   Pinger
	Logger   *slog.Logger
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auth := deps.Auth
	if auth == nil {
		auth = NewAuthenticator("")
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(deps.Health)
	taskH := NewTaskHandler(deps.Tasks)
	sessionH := NewSessionHandler(deps.Tasks, deps.Sessions, logger)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(auth))

		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", taskH.Create)
			r.Get("/{id}", taskH.Get)
		})

		r.Route("/api/sessions", func(r chi.Router) {
			r.Get("/", sessionH.List)
			r.Post("/start", sessionH.Start)
			r.Post("/end", sessionH.End)
		})
	})

	return r
}
