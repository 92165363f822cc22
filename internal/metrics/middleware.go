package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foundry",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foundry",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	rpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foundry",
			Name:      "grpc_requests_total",
			Help:      "Total number of unary gRPC calls",
		},
		[]string{"method", "code"},
	)

	rpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foundry",
			Name:      "grpc_request_duration_seconds",
			Help:      "Unary gRPC call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// SyncRunsTotal counts export runs by outcome (ok, partial, failed).
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foundry",
			Name:      "sync_runs_total",
			Help:      "Total number of JSONL export runs",
		},
		[]string{"result"},
	)

	// RecordEventsTotal counts record change events by resource and action.
	RecordEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foundry",
			Name:      "record_events_total",
			Help:      "Total number of record change events emitted",
		},
		[]string{"resource", "action"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(RecordEventsTotal)
	prometheus.MustRegister(rpcRequestsTotal)
	prometheus.MustRegister(rpcRequestDuration)
	prometheus.MustRegister(SyncRunsTotal)
}

// ObserveRPC records one finished unary call. method is the short method
// name, code the gRPC status code string.
func ObserveRPC(method, code string, d time.Duration) {
	rpcRequestsTotal.WithLabelValues(method, code).Inc()
	rpcRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTP request duration and count. The path label is the
// ServeMux pattern that matched, so the wrapped handler must be (or directly
// wrap) the mux and receive the same *http.Request.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.status)
			path := normalizePath(r.Pattern)

			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// normalizePath normalizes paths to prevent high cardinality in metrics labels.
func normalizePath(pattern string) string {
	if pattern == "" {
		return "unknown"
	}
	return pattern
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}

// Flush lets streaming handlers (SSE) push through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
