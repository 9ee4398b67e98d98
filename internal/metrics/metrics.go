package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the Mitgliederamt
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// IdP Metrics
	KeycloakRequestsTotal prometheus.CounterVec

	// Business Metrics
	AccountsCreatedTotal prometheus.Counter
	SyncRunsTotal        prometheus.Counter
	SyncJobDuration      prometheus.Histogram
	MembersSyncedTotal   prometheus.Counter
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mitgliederamt_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mitgliederamt_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mitgliederamt_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// IdP Metrics
		KeycloakRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mitgliederamt_keycloak_requests_total",
				Help: "Total Keycloak admin API calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		// Business Metrics
		AccountsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mitgliederamt_accounts_created_total",
				Help: "Total IdP accounts created for members",
			},
		),
		SyncRunsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mitgliederamt_sync_runs_total",
				Help: "Total bulk reconciliation runs",
			},
		),
		SyncJobDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mitgliederamt_sync_job_duration_seconds",
				Help:    "Bulk reconciliation execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		MembersSyncedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mitgliederamt_members_synced_total",
				Help: "Total member records touched by reconciliation runs",
			},
		),
	}
}
