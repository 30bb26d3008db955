package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmsportal_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// GateDecisions counts authorization gate evaluations and their outcome (authorized|denied).
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmsportal_gate_decisions_total",
			Help: "Total number of authorization gate decisions",
		},
		[]string{"action", "result"},
	)

	// FeatureChecks counts feature flag evaluations by feature and outcome (enabled|disabled).
	FeatureChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmsportal_feature_checks_total",
			Help: "Total number of feature flag evaluations",
		},
		[]string{"feature", "result"},
	)

	// OrganizationResolutions counts host-to-organization lookups by outcome (hit|miss).
	OrganizationResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmsportal_org_resolutions_total",
			Help: "Total number of organization resolution attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nmsportal_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nmsportal_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ProxyRequests counts southbound gateway API proxy calls by status class.
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmsportal_proxy_requests_total",
			Help: "Total number of southbound proxy requests",
		},
		[]string{"status_class"},
	)
)
