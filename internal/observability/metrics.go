package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Backend API client metrics
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of calls to the interview backend in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "status"},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refresh_total",
			Help: "Token refresh attempts by result (success, failure, error, skipped, superseded)",
		},
		[]string{"result"},
	)

	// Interview room metrics
	InterviewScreensActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_screens_active",
			Help: "Number of interview screens connected over WebSocket",
		},
	)

	InterviewSessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_ended_total",
			Help: "Interview sessions by how they ended",
		},
		[]string{"reason"},
	)

	// Waitlist metrics
	WaitlistSignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "Waitlist signup attempts by result",
		},
		[]string{"result"},
	)

	ConfirmationEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_emails_total",
			Help: "Waitlist confirmation emails by result (sent, failed, skipped)",
		},
		[]string{"result"},
	)
)
