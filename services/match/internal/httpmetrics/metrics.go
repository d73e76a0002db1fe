// Package httpmetrics provides a Prometheus request-count/latency middleware
// and the matchmaker's own gauges, exposed on /metrics.
package httpmetrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed, labeled by service/route/method/status.",
	}, []string{"service", "route", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, labeled by service/route/method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "route", "method"})

	inFlightFindMatch = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "find_match_waiters_in_flight",
		Help: "Number of find_match requests currently blocked waiting for a partner.",
	}, []string{"service"})
)

// Middleware records request count and latency for every request, labeled
// by the chi route pattern where available.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			requestsTotal.WithLabelValues(service, route, r.Method, strconv.Itoa(rec.status)).Inc()
			requestDuration.WithLabelValues(service, route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// FindMatchWaiterStarted/Ended track the in-flight gauge around the blocking
// wait in matchsvc.Service.FindMatch.
func FindMatchWaiterStarted(service string) { inFlightFindMatch.WithLabelValues(service).Inc() }
func FindMatchWaiterEnded(service string)   { inFlightFindMatch.WithLabelValues(service).Dec() }

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// responseRecorder wraps a ResponseWriter to capture the status code, and
// forwards the optional Flush/Hijack interfaces real handlers may need.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.written {
		r.status = status
		r.written = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.status = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
