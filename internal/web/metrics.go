package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values.
const (
	PageLanding   = "landing"
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageProduct   = "product"

	StatusOK       = "200"
	StatusNotFound = "404"
	StatusLimited  = "429"
	StatusError    = "500"

	ReasonNoSession   = "no_session"
	ReasonRevoked     = "revoked"
	ReasonRateLimited = "rate_limited"
	ReasonBadCode     = "bad_code"
)

var (
	// PageHitsTotal counts page renders by page and HTTP status.
	PageHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_page_hits_total",
		Help: "Total number of page hits",
	}, []string{"page", "status"})

	// AuthDeniedTotal counts rejected requests by reason.
	AuthDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_auth_denied_total",
		Help: "Total number of denied requests",
	}, []string{"reason"})

	// SignInsTotal counts completed sign-ins.
	SignInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_sign_ins_total",
		Help: "Total number of completed sign-ins",
	})

	// LatencyHistogram measures page render latency.
	LatencyHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_page_latency_seconds",
		Help:    "Latency of page rendering",
		Buckets: prometheus.DefBuckets,
	}, []string{"page"})

	// SessionSocketsGauge tracks open session websockets.
	SessionSocketsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_session_sockets",
		Help: "Currently open session notification sockets",
	})
)
