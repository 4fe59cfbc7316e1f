package identity

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricLoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	metricTokensRotated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identity_tokens_rotated_total",
		Help: "Session tokens re-minted through the rotation window.",
	})

	metricActionTokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_action_tokens_issued_total",
			Help: "Action tokens issued by purpose.",
		},
		[]string{"purpose"},
	)

	metricActionTokensConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_action_tokens_consumed_total",
			Help: "Action tokens redeemed by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)

	metricHTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_http_requests_total",
			Help: "HTTP requests by method, route, and status.",
		},
		[]string{"method", "route", "status"},
	)

	metricHTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identity_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// InitMetrics registers every collector with the default registry.
// Call it once at startup before serving traffic.
func InitMetrics() {
	prometheus.MustRegister(
		metricLoginAttempts,
		metricTokensRotated,
		metricActionTokensIssued,
		metricActionTokensConsumed,
		metricHTTPRequests,
		metricHTTPDuration,
	)
}

func observeLogin(outcome string) {
	metricLoginAttempts.WithLabelValues(outcome).Inc()
}

func observeRotation() {
	metricTokensRotated.Inc()
}

func observeActionTokenIssued(purpose TokenPurpose) {
	metricActionTokensIssued.WithLabelValues(purpose).Inc()
}

func observeActionTokenConsumed(purpose TokenPurpose, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "rejected"
	}
	metricActionTokensConsumed.WithLabelValues(purpose, outcome).Inc()
}

func observeHTTP(method, route string, status int, seconds float64) {
	metricHTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	metricHTTPDuration.WithLabelValues(method, route).Observe(seconds)
}
