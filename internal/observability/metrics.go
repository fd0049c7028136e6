package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	postingsTotal     *prometheus.CounterVec
	postingErrors     *prometheus.CounterVec
	yearClosesTotal   prometheus.Counter
	statementRequests *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_ledger_postings_total",
		Help: "Journal entries posted, by source module.",
	}, []string{"module"})
	postingErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_ledger_posting_errors_total",
		Help: "Rejected posting attempts, by rejection reason.",
	}, []string{"reason"})
	yearCloses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_ledger_year_closes_total",
		Help: "Fiscal years closed since process start.",
	})
	statements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_ledger_statement_requests_total",
		Help: "Financial statement generations, by kind.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, postings, postingErrors, yearCloses, statements)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		postingsTotal:     postings,
		postingErrors:     postingErrors,
		yearClosesTotal:   yearCloses,
		statementRequests: statements,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RecordPosting counts a successful journal posting.
func (m *Metrics) RecordPosting(module string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	m.postingsTotal.WithLabelValues(module).Inc()
}

// RecordPostingError counts a rejected posting attempt.
func (m *Metrics) RecordPostingError(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.postingErrors.WithLabelValues(reason).Inc()
}

// RecordYearClose counts a completed fiscal year close.
func (m *Metrics) RecordYearClose() {
	if m == nil {
		return
	}
	m.yearClosesTotal.Inc()
}

// RecordStatement counts a generated financial statement.
func (m *Metrics) RecordStatement(kind string) {
	if m == nil {
		return
	}
	m.statementRequests.WithLabelValues(kind).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
