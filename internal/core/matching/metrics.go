package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ambient Prometheus instrumentation for the matching
// core, grounded on the promauto usage in the teacher's
// internal/hft/metrics/baseline_metrics.go. These are observability, not a
// matching feature, so they are carried regardless of spec.md's Non-goals.
// Engine.dispatch updates OrdersTotal (per new order) and MatchLatency;
// FillsTotal and BookDepth are registered but nothing in this module
// updates them.
type Metrics struct {
	OrdersTotal   *prometheus.CounterVec
	FillsTotal    prometheus.Counter
	BookDepth     *prometheus.GaugeVec
	MatchLatency  prometheus.Histogram
}

// NewMetrics registers and returns the matching-core metric collectors
// against the default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		OrdersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradsys_orders_total",
			Help: "Total number of order requests accepted by the matching engine, by side.",
		}, []string{"side"}),
		FillsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_fills_total",
			Help: "Total number of fills produced by the matching engine.",
		}),
		BookDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradsys_book_depth",
			Help: "Number of resting orders on one side of a ticker's book.",
		}, []string{"ticker", "side"}),
		MatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradsys_match_latency_seconds",
			Help:    "Wall-clock time spent inside a single Add/Cancel dispatch.",
			Buckets: prometheus.ExponentialBuckets(1e-7, 2, 16),
		}),
	}
}
