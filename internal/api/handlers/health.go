package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/utils"
	"github.com/pratik-mahalle/stagingctl/internal/worker"
)

// SchedulerStatus is implemented by worker.EnvScheduler
type SchedulerStatus interface {
	Status() worker.SchedulerStatus
}

// HealthHandler serves the daemon's probes and run status
type HealthHandler struct {
	scheduler SchedulerStatus
	logger    *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(scheduler SchedulerStatus, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		scheduler: scheduler,
		logger:    log,
	}
}

// Healthz handles liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz reports ready once the scheduler loop is running
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.scheduler.Status().Running {
		utils.WriteError(w, http.StatusServiceUnavailable,
			errors.New("SERVICE_UNAVAILABLE", "scheduler is not running"))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Status returns the schedules, the run in progress and the last report of each direction
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, h.scheduler.Status())
}
