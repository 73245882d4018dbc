package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the monitoring service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	MetricsRecorded  *prometheus.CounterVec
	MetricsRejected  *prometheus.CounterVec
	HealthUpdates    *prometheus.CounterVec

	// Rule evaluation metrics
	RuleEvaluations    prometheus.Counter
	RuleEvaluationTime prometheus.Histogram
	AlertsFired        *prometheus.CounterVec

	// Maintenance metrics
	RecordsPurged   *prometheus.CounterVec
	MaintenanceRuns prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		MetricsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metric_points_recorded_total",
				Help:      "Total number of metric points recorded",
			},
			[]string{"metric"},
		),
		MetricsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metric_points_rejected_total",
				Help:      "Total number of metric points rejected by validation",
			},
			[]string{"reason"},
		),
		HealthUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_updates_total",
				Help:      "Total number of health snapshot updates",
			},
			[]string{"status"},
		),
		RuleEvaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total number of metric points evaluated against rules",
			},
		),
		RuleEvaluationTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rule_evaluation_duration_seconds",
				Help:      "Duration of rule evaluation per metric point",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		AlertsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_fired_total",
				Help:      "Total number of alerts created by rule evaluation",
			},
			[]string{"rule", "level"},
		),
		RecordsPurged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_purged_total",
				Help:      "Total number of records deleted by retention maintenance",
			},
			[]string{"kind"},
		),
		MaintenanceRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Total number of retention maintenance runs",
			},
		),
	}

	m.Register()

	return m
}

// Register registers all metrics with Prometheus
func (m *Metrics) Register() {
	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MetricsRecorded,
		m.MetricsRejected,
		m.HealthUpdates,
		m.RuleEvaluations,
		m.RuleEvaluationTime,
		m.AlertsFired,
		m.RecordsPurged,
		m.MaintenanceRuns,
	)
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMetricsMiddleware returns middleware that collects HTTP metrics
func (m *Metrics) HTTPMetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
