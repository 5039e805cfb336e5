// Package metrics exposes Prometheus metrics for the scanner pipeline.
package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal     prometheus.Counter
	FetchFailures  prometheus.Counter
	SymbolsSkipped prometheus.Counter
	SignalsTotal   *prometheus.CounterVec // labels: policy
	AlertsTotal    *prometheus.CounterVec // labels: result (sent|suppressed|delivery_failed)

	FetchDuration prometheus.Histogram
	CycleDuration prometheus.Histogram

	UniverseSize  prometheus.Gauge
	LastCycleUnix prometheus.Gauge
}

// New registers and returns all scanner metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_fetch_total",
			Help: "Total kline fetches attempted (after retries collapse to one)",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_fetch_failures_total",
			Help: "Fetches that exhausted retries or returned unusable data",
		}),
		SymbolsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_symbols_skipped_total",
			Help: "Symbols skipped this cycle due to fetch or data problems",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_signals_total",
			Help: "Whale-trap signals emitted by the evaluator",
		}, []string{"policy"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_alerts_total",
			Help: "Alert dispatch outcomes",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_fetch_duration_seconds",
			Help:    "Kline fetch latency including retries",
			Buckets: prometheus.DefBuckets,
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_cycle_duration_seconds",
			Help:    "Full polling cycle duration",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		UniverseSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_universe_size",
			Help: "Number of symbols in the current polling universe",
		}),
		LastCycleUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_cycle_timestamp_seconds",
			Help: "Unix time the last full cycle completed",
		}),
	}

	m.registry.MustRegister(
		m.FetchTotal, m.FetchFailures, m.SymbolsSkipped,
		m.SignalsTotal, m.AlertsTotal,
		m.FetchDuration, m.CycleDuration,
		m.UniverseSize, m.LastCycleUnix,
	)
	return m
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled. extra
// mounts additional ops routes (the signal journal's recent-signals handler);
// it may be nil.
func (m *Metrics) Serve(ctx context.Context, addr string, extra map[string]http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	for path, h := range extra {
		mux.Handle(path, h)
	}

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[metrics] serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
