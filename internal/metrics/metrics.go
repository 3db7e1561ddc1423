// Package metrics provides Prometheus instrumentation for the wager engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BetsTotal counts accepted bets.
	BetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wager_bets_total",
		Help: "Total number of accepted bets",
	})

	// BetRejections counts rejected bet attempts, partitioned by reason.
	BetRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wager_bet_rejections_total",
		Help: "Bet attempts rejected by validation",
	}, []string{"reason"})

	// GrantsTotal counts reward grants, partitioned by kind (ubi, author).
	GrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wager_grants_total",
		Help: "Token grants credited",
	}, []string{"kind"})

	// CurrentPhase exposes the competition phase as a numeric gauge
	// (1=prematch, 2=ongoing, 3=grading, 4=concluding).
	CurrentPhase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wager_competition_phase",
		Help: "Current competition phase",
	})

	// Participants tracks the number of ledger accounts.
	Participants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wager_participants",
		Help: "Number of participants in the ledger",
	})

	// Candidates tracks registered bettable candidates.
	Candidates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wager_candidates",
		Help: "Number of registered candidates",
	})

	// SettlementsTotal counts completed settlements (0 or 1 per run).
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wager_settlements_total",
		Help: "Completed settlements",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wager_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wager_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wager_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small
		// enough that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
