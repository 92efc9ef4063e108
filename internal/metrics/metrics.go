package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_membership_approvals_total",
			Help: "Total number of membership approval attempts",
		},
		[]string{"outcome"}, // approved, trainer_renewal, rejected, conflict, not_approvable
	)

	PaymentsClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_payments_classified_total",
			Help: "Total number of payment classifications",
		},
		[]string{"purpose", "provenance"},
	)

	GraceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_grace_transitions_total",
			Help: "Total number of grace period transitions",
		},
		[]string{"kind"}, // entered_grace, expired, reactivated, trainer_grace, trainer_lapsed
	)

	InvoicesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_invoices_generated_total",
			Help: "Total number of invoice generation attempts",
		},
		[]string{"purpose", "status"},
	)
)

// RecordHTTPRequest updates the request counter and duration histogram.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
