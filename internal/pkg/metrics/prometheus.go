package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics (scheduler daemon only)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagingctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Sequencer metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagingctl",
			Subsystem: "sequencer",
			Name:      "runs_total",
			Help:      "Total number of start/stop runs",
		},
		[]string{"direction", "result"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagingctl",
			Subsystem: "sequencer",
			Name:      "run_duration_seconds",
			Help:      "Duration of start/stop runs in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900, 1800, 3600},
		},
		[]string{"direction"},
	)

	lastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stagingctl",
			Subsystem: "sequencer",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of each direction finished",
		},
		[]string{"direction", "result"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagingctl",
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Duration of a sequencer stage in seconds",
			Buckets:   []float64{.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"direction", "stage", "status"},
	)

	stageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagingctl",
			Subsystem: "stage",
			Name:      "failures_total",
			Help:      "Total number of stage failures by error kind",
		},
		[]string{"direction", "stage", "kind"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagingctl",
			Subsystem: "provider",
			Name:      "submissions_total",
			Help:      "Total number of change-state requests sent to providers",
		},
		[]string{"class", "result"},
	)

	clusterCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagingctl",
			Subsystem: "atlas",
			Name:      "commands_total",
			Help:      "Total number of managed cluster CLI invocations by exit status",
		},
		[]string{"action", "result"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile writes the default registry in the node-exporter textfile format
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordRun records a completed run
func RecordRun(direction string, ok bool, duration time.Duration) {
	runsTotal.WithLabelValues(direction, result(ok)).Inc()
	runDuration.WithLabelValues(direction).Observe(duration.Seconds())
	lastRunTimestamp.WithLabelValues(direction, result(ok)).SetToCurrentTime()
}

// RecordStage records the outcome and duration of a stage
func RecordStage(direction, stage, status string, duration time.Duration) {
	stageDuration.WithLabelValues(direction, stage, status).Observe(duration.Seconds())
}

// RecordStageFailure records a stage failure by error kind (timeout, api, ...)
func RecordStageFailure(direction, stage, kind string) {
	stageFailuresTotal.WithLabelValues(direction, stage, kind).Inc()
}

// RecordSubmission records a change-state request to a provider
func RecordSubmission(class string, ok bool) {
	submissionsTotal.WithLabelValues(class, result(ok)).Inc()
}

// RecordClusterCommand records a managed cluster CLI invocation
func RecordClusterCommand(action string, ok bool) {
	clusterCommandsTotal.WithLabelValues(action, result(ok)).Inc()
}
