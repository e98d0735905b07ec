package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("start", "failure"))

	RecordRun("start", false, 3*time.Second)

	after := testutil.ToFloat64(runsTotal.WithLabelValues("start", "failure"))
	if after != before+1 {
		t.Errorf("runs_total{start,failure} = %v, want %v", after, before+1)
	}
}

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("container_service", "success"))

	RecordSubmission("container_service", true)
	RecordSubmission("container_service", true)

	after := testutil.ToFloat64(submissionsTotal.WithLabelValues("container_service", "success"))
	if after != before+2 {
		t.Errorf("submissions_total = %v, want %v", after, before+2)
	}
}

func TestWriteTextfile(t *testing.T) {
	RecordStage("stop", "stop-compute", "succeeded", time.Second)
	RecordStageFailure("stop", "await-compute-stopped", "timeout")

	path := filepath.Join(t.TempDir(), "stagingctl.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"stagingctl_stage_duration_seconds",
		`stagingctl_stage_failures_total{direction="stop",kind="timeout",stage="await-compute-stopped"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestMiddleware_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "204"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "204"))
	if after != before+1 {
		t.Errorf("http requests_total = %v, want %v", after, before+1)
	}
}
