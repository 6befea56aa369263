// Package metrics exposes the ledger's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopledger_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "status"},
	)

	// HTTPRequestDuration observes request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopledger_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// OrdersCreatedTotal counts orders created at checkout.
	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopledger_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	// CertificatesIssuedTotal counts gift certificates issued.
	CertificatesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopledger_certificates_issued_total",
			Help: "Total number of gift certificates issued",
		},
	)

	// CertificatesSettledTotal counts certificate settlements by outcome.
	CertificatesSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopledger_certificates_settled_total",
			Help: "Total number of certificate settlements",
		},
		[]string{"outcome"}, // "full" or "shortfall"
	)

	// SettlementReconciliationsTotal counts settlements flagged for
	// manual reconciliation.
	SettlementReconciliationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopledger_settlement_reconciliations_total",
			Help: "Total number of settlements needing manual reconciliation",
		},
	)
)
