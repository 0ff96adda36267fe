package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	boardClientsActive prometheus.Gauge
	boardPushesTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for API observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 30.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		boardClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_board_clients_active",
			Help: "Number of websocket subscribers currently attached to leaderboards.",
		})

		boardPushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_board_pushes_total",
			Help: "Leaderboard snapshots fanned out to subscribers, by originating node.",
		}, []string{"source"})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpErrorsTotal, boardClientsActive, boardPushesTotal)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// BoardClientsActive exposes the gauge of live leaderboard subscribers.
func BoardClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return boardClientsActive
}

// BoardPushesTotal exposes the counter of leaderboard fan-outs.
func BoardPushesTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return boardPushesTotal
}
