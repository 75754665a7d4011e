package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"modelgate/internal/stream"
)

const metricsNamespace = "modelgate"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time until the handler returned. Streams count their full length.",
		Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 10, 30, 120, 600},
	}, []string{"route", "method", "code"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Requests currently being served.",
	})

	chatRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "rejected_total",
		Help:      "Chat requests answered with an error status, by cause.",
	}, []string{"reason"})

	chatFirstFrame = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "first_frame_seconds",
		Help:      "Time from request start to the first streamed frame, load included.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"model"})

	chatFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "stream_frames_total",
		Help:      "SSE content frames written, sentinel excluded.",
	}, []string{"model"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpLatency, httpInflight, chatRejected, chatFirstFrame, chatFrames)
}

// codeWriter remembers the status code written through it.
type codeWriter struct {
	http.ResponseWriter
	code int
}

func (cw *codeWriter) WriteHeader(code int) {
	if cw.code == 0 {
		cw.code = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *codeWriter) Write(p []byte) (int, error) {
	if cw.code == 0 {
		cw.code = http.StatusOK
	}
	return cw.ResponseWriter.Write(p)
}

// Flush keeps event streams working behind the middleware.
func (cw *codeWriter) Flush() {
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *codeWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }

func (cw *codeWriter) status() int {
	if cw.code == 0 {
		return http.StatusOK
	}
	return cw.code
}

// MetricsMiddleware records request counts and latency per chi route.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		cw := &codeWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(cw, r)

		// The pattern is only known once chi has routed the request.
		route := routeLabel(r)
		code := strconv.Itoa(cw.status())
		httpRequests.WithLabelValues(route, r.Method, code).Inc()
		httpLatency.WithLabelValues(route, r.Method, code).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the chi route pattern to keep label cardinality bounded.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// countRejection records a chat request that failed with status.
func countRejection(status int) {
	reason := "other"
	switch status {
	case http.StatusTooManyRequests:
		reason = "queue"
	case http.StatusServiceUnavailable:
		reason = "unavailable"
	case http.StatusBadRequest:
		reason = "invalid"
	}
	chatRejected.WithLabelValues(reason).Inc()
}

// countingEmit wraps emit to observe frames for model. The sentinel is not
// counted.
func countingEmit(model string, start time.Time, emit func([]byte) error) func([]byte) error {
	first := true
	frames := chatFrames.WithLabelValues(model)
	return func(b []byte) error {
		if first {
			first = false
			chatFirstFrame.WithLabelValues(model).Observe(time.Since(start).Seconds())
		}
		if string(b) != stream.Done {
			frames.Inc()
		}
		return emit(b)
	}
}
