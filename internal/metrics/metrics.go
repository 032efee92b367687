// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Results recorded by AuthVerifications.
const (
	VerifyOK      = "ok"
	VerifyMissing = "missing"
	VerifyRevoked = "revoked"
	VerifyExpired = "expired"
	VerifyInvalid = "invalid"
	VerifyError   = "error"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"route", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "request_duration_seconds",
			Help:      "Request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	AuthVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "verifications_total",
			Help:      "Bearer token verifications by result",
		},
		[]string{"result"},
	)
	AuthLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result",
		},
		[]string{"result"},
	)
	AuthRevocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "revocations_total",
			Help:      "Tokens added to the revocation set",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, AuthVerifications, AuthLogins, AuthRevocations)
}
