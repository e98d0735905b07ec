package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/stagingctl/internal/api/handlers"
	"github.com/pratik-mahalle/stagingctl/internal/api/middleware"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/metrics"
)

type Handlers struct {
	Health *handlers.HealthHandler
}

// New builds the scheduler daemon's HTTP handler
func New(log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Get("/status", h.Health.Status)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
