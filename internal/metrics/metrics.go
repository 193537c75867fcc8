package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concierge"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Pricing metrics
var (
	PricingQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Total number of credit-cost quotes by category and rule origin",
		},
		[]string{"category", "origin"},
	)

	RuleCacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_rule_cache_refreshes_total",
			Help:      "Total number of rule cache refresh attempts by result",
		},
		[]string{"result"},
	)

	RuleMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_rule_mutations_total",
			Help:      "Total number of administrative rule changes by action",
		},
		[]string{"action"},
	)
)

// Billing metrics
var (
	CheckoutSessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_checkout_sessions_total",
			Help:      "Total number of credit-pack checkout sessions created",
		},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_webhook_events_total",
			Help:      "Total number of Stripe webhook events received by type",
		},
		[]string{"type"},
	)
)
