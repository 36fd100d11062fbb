// Package metrics provides Prometheus instrumentation for the trader.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decisions counts decisions returned by the synthesizer, by evaluation
	// kind (buy/sell) and decision kind (BUY/SELL/HOLD/ERROR).
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_decisions_total",
		Help: "Decisions returned by the reasoning capability",
	}, []string{"evaluation", "kind"})

	// CompletionSeconds tracks the latency of completion calls, retries included.
	CompletionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trader_completion_seconds",
		Help:    "Latency of reasoning completion calls in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// Fills counts executed simulated orders by side.
	Fills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_fills_total",
		Help: "Simulated fills by side",
	}, []string{"side"})

	// RiskDenials counts trades blocked by the risk gate or broker checks.
	RiskDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_risk_denials_total",
		Help: "Trades rejected before execution",
	}, []string{"side", "code"})

	// LedgerFailures counts failed best-effort balance writes.
	LedgerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_ledger_failures_total",
		Help: "External ledger persistence failures",
	})

	// SnapshotMisses counts tickers excluded from a step for lack of data.
	SnapshotMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_snapshot_misses_total",
		Help: "Snapshot fetches that returned no data",
	})

	// Balance reports the latest simulated cash balance.
	Balance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trader_balance",
		Help: "Current simulated cash balance",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves /metrics and /healthz.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", Handler())
	return r
}
