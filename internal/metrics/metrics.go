// Package metrics defines the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session metrics
var (
	// SessionTransitions tracks client session cell transitions by resulting state
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Session cell transitions by resulting state",
		},
		[]string{"state"},
	)

	// ServerSessionsCreated tracks server-side sessions issued at login
	ServerSessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "server_sessions_created_total",
			Help: "Server-side sessions issued",
		},
	)

	// ServerSessionsRevoked tracks explicit logouts and revocations
	ServerSessionsRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "server_sessions_revoked_total",
			Help: "Server-side sessions revoked",
		},
	)
)

// Fetch metrics
var (
	// FetchOutcomes tracks terminal fetch outcomes by resource and result
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_outcomes_total",
			Help: "Terminal fetch outcomes by resource and result (success/failure)",
		},
		[]string{"resource", "result"},
	)

	// FetchDuration tracks fetch latency in seconds by resource
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Fetch duration in seconds by resource",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"resource"},
	)

	// FetchRevalidations tracks forced re-validations (manual mutate calls)
	FetchRevalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_revalidations_total",
			Help: "Forced re-validations by resource",
		},
		[]string{"resource"},
	)
)

// Auth metrics
var (
	// LoginAttempts tracks login attempts by result (success/invalid/error)
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// CircuitBreakerState tracks current breaker state per component (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// HTTP metrics
var (
	// HTTPRequestDuration tracks request latency by method, route, and status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)
)
