package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authzDecisions  *prometheus.CounterVec
	divergenceTotal *prometheus.CounterVec
	auditDropped    prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pasarhub_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pasarhub_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pasarhub_authz_decisions_total",
		Help: "Keputusan otorisasi per titik penegakan dan verdict.",
	}, []string{"enforcer", "verdict"})
	divergence := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pasarhub_authz_gate_guard_divergence_total",
		Help: "Perbedaan verdict antara gate dan guard per area.",
	}, []string{"area"})
	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pasarhub_audit_events_dropped_total",
		Help: "Event audit yang hilang setelah retry dan fallback.",
	})
	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pasarhub_rate_limited_total",
		Help: "Permintaan yang ditolak oleh rate limiter per kelas aksi.",
	}, []string{"class"})
	registry.MustRegister(requests, duration, decisions, divergence, auditDropped, rateLimited)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		authzDecisions:  decisions,
		divergenceTotal: divergence,
		auditDropped:    auditDropped,
		rateLimited:     rateLimited,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
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

// DecisionEvaluated mencatat satu keputusan otorisasi.
func (m *Metrics) DecisionEvaluated(enforcer, verdict string) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(enforcer, verdict).Inc()
}

// GateGuardDivergence mencatat verdict gate dan guard yang tidak sama.
func (m *Metrics) GateGuardDivergence(area string) {
	if m == nil {
		return
	}
	m.divergenceTotal.WithLabelValues(area).Inc()
}

// AuditDroppedCounter mengekspos counter audit yang hilang.
func (m *Metrics) AuditDroppedCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.auditDropped
}

// RateLimited mencatat penolakan rate limiter.
func (m *Metrics) RateLimited(class string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(class).Inc()
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
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
