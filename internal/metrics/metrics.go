// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingo_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wingo_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	OTPIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wingo_otp_issued_total",
			Help: "OTP challenges issued.",
		},
	)

	// result is one of success, invalid, error
	OTPVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingo_otp_verifications_total",
			Help: "OTP verification attempts by result.",
		},
		[]string{"result"},
	)

	OTPDispatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wingo_otp_dispatch_failures_total",
			Help: "OTP codes the dispatch channel failed to deliver.",
		},
	)

	UsersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wingo_users_created_total",
			Help: "Users created on first successful verification.",
		},
	)

	OrdersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingo_orders_created_total",
			Help: "Orders placed by payment method.",
		},
		[]string{"payment_method"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingo_order_transitions_total",
			Help: "Order status transitions.",
		},
		[]string{"from", "to"},
	)

	PaymentUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingo_payment_updates_total",
			Help: "Payment status changes by resulting status.",
		},
		[]string{"status"},
	)

	TrackingSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wingo_tracking_subscribers",
			Help: "Open order tracking subscriptions.",
		},
	)
)

var (
	// state is one of acquired, idle, total
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wingo_db_pool_connections",
			Help: "Database pool connections by state.",
		},
		[]string{"state"},
	)

	OTPPendingChallenges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wingo_otp_pending_challenges",
			Help: "OTP challenges held by the in-memory store.",
		},
	)
)
