package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "preview",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "preview",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	eventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "preview",
			Subsystem: "channel",
			Name:      "events_ingested_total",
			Help:      "Events accepted by the ingress endpoint, by kind",
		},
		[]string{"kind"},
	)

	eventsUnroutableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "preview",
			Subsystem: "channel",
			Name:      "events_unroutable_total",
			Help:      "Events ingested for conversations nobody subscribed to",
		},
	)

	activeStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "preview",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Currently attached event stream clients",
		},
		[]string{"transport"},
	)

	streamDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "preview",
			Subsystem: "stream",
			Name:      "dropped_total",
			Help:      "Events dropped because a stream client fell behind",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		eventsIngestedTotal,
		eventsUnroutableTotal,
		activeStreams,
		streamDroppedTotal,
	)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps websocket upgrades working behind the middleware.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// metricsMiddleware instruments requests for prometheus. Streaming
// endpoints observe their full stream lifetime as the request duration.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		path := routePatternOrPath(r)
		status := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, status).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern when available so the
// conversation id does not blow up label cardinality.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
