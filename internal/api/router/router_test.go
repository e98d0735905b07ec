package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pratik-mahalle/stagingctl/internal/api/handlers"
	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/worker"
)

type fakeScheduler struct {
	status worker.SchedulerStatus
}

func (f *fakeScheduler) Status() worker.SchedulerStatus {
	return f.status
}

func newTestRouter(st worker.SchedulerStatus) http.Handler {
	log := logger.Nop()
	return New(log, &Handlers{
		Health: handlers.NewHealthHandler(&fakeScheduler{status: st}, log),
	})
}

func TestRouter(t *testing.T) {
	running := worker.SchedulerStatus{
		Running:  true,
		Timezone: "UTC",
		LastRuns: map[environment.Direction]*environment.RunReport{
			environment.DirectionStop: {RunID: "run-42", Direction: environment.DirectionStop, Success: true},
		},
	}

	tests := []struct {
		name       string
		status     worker.SchedulerStatus
		path       string
		wantStatus int
		wantBody   string
	}{
		{"liveness", running, "/healthz", http.StatusOK, `"status":"ok"`},
		{"ready", running, "/readyz", http.StatusOK, `"status":"ready"`},
		{"not ready", worker.SchedulerStatus{}, "/readyz", http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"status", running, "/status", http.StatusOK, `"run_id":"run-42"`},
		{"metrics", running, "/metrics", http.StatusOK, "stagingctl_http_requests_total"},
		{"unknown", running, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(tt.status)
			// the request counter appears on /metrics once a request has been served
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("GET %s body = %s, want it to contain %s", tt.path, rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestRouter_StatusShape(t *testing.T) {
	h := newTestRouter(worker.SchedulerStatus{Running: true, Timezone: "Asia/Singapore"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var body struct {
		Success bool                   `json:"success"`
		Data    worker.SchedulerStatus `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || !body.Data.Running || body.Data.Timezone != "Asia/Singapore" {
		t.Errorf("status body = %+v", body)
	}
}
