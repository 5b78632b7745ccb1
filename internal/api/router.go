package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/inkpipe/internal/api/middleware"
)

// RouterDeps are the collaborators the router mounts.
type RouterDeps struct {
	DB      Pinger
	Jobs    *JobsHandler
	Auth    *middleware.ServiceAuth
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the HTTP routes. /metrics is mounted only when a metrics
// handler is given.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace(deps.Logger))

	r.Get("/healthz", HealthHandler(deps.DB))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/internal", func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Post("/jobs/run", deps.Jobs.Run)
	})

	return r
}
