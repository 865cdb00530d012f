// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faktura_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	LedgerDebits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faktura_ledger_debits_total",
		Help: "Invoice points consumed by send or create",
	})
	LedgerCredits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faktura_ledger_credits_total",
		Help: "Invoice points credited by payment events",
	})
	// LedgerFailures is the alerting signal for transactions that did not
	// commit while moving points.
	LedgerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faktura_ledger_failures_total",
			Help: "Points ledger transactions that failed in storage",
		},
		[]string{"op"},
	)
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faktura_webhook_events_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)
)
