// Package metrics holds the Prometheus collectors for session renewal,
// logout, gate decisions and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Renewal outcomes
const (
	OutcomeRenewed   = "renewed"
	OutcomeUnchanged = "unchanged"
	OutcomeFresh     = "fresh"
	OutcomeInvalid   = "invalid"
	OutcomeTransport = "transport_error"
)

var (
	Renewals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_renewals_total",
			Help: "Token validation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	RenewalShared = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_renewal_shared_total",
		Help: "Callers that received the result of a renewal shared with other callers.",
	})

	Logouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_logouts_total",
			Help: "Logout cascades by reason.",
		},
		[]string{"reason"},
	)

	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_gate_decisions_total",
			Help: "Authorization gate decisions.",
		},
		[]string{"kind", "reason"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(Renewals, RenewalShared, Logouts, GateDecisions, httpRequestsTotal, httpRequestDuration)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency for next.
func Instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &StatusWriter{ResponseWriter: w, Code: http.StatusOK}
		start := time.Now()
		next(sw, r)

		status := strconv.Itoa(sw.Code)
		httpRequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
	}
}

// StatusWriter remembers the status code written through it.
type StatusWriter struct {
	http.ResponseWriter
	Code int
}

func (w *StatusWriter) WriteHeader(code int) {
	w.Code = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *StatusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
