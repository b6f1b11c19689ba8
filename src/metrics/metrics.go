// Package metrics provides Prometheus instrumentation for the ledger.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts committed trades by action.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_trades_total",
		Help: "Total number of trades committed",
	}, []string{"action"})

	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "papertrader_trade_latency_seconds",
		Help:    "Trade execution latency in seconds, pricing included",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// TradeRejections counts trades rejected before commit, by error kind.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_trade_rejections_total",
		Help: "Trades rejected by validation, pricing or risk checks",
	}, []string{"kind"})

	// PriceFetches counts upstream quote calls by path and outcome.
	PriceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_price_fetches_total",
		Help: "Upstream price fetches",
	}, []string{"path", "outcome"})

	PriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_price_cache_hits_total",
		Help: "Price lookups served from cache",
	})

	PriceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_price_cache_misses_total",
		Help: "Price lookups not found in cache",
	})

	// Rollovers counts day baseline resets.
	Rollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_day_rollovers_total",
		Help: "Day P&L baseline resets",
	})

	BrokerageSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_brokerage_syncs_total",
		Help: "Brokerage reconciliations by outcome",
	}, []string{"outcome"})

	// WebSocketClients tracks connected trade feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papertrader_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "papertrader_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
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
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern, not the raw path, keeps user ids out of the labels.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

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

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
