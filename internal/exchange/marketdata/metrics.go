package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ambient Prometheus instrumentation for the exchange's
// market-data pipeline, mirroring the matching core's metrics.go.
type Metrics struct {
	IncrementalsSent   prometheus.Counter
	SnapshotsPublished prometheus.Counter
}

// NewMetrics registers and returns the market-data metric collectors
// against the default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		IncrementalsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_md_incrementals_sent_total",
			Help: "Total number of incremental market-data datagrams sent.",
		}),
		SnapshotsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_md_snapshots_published_total",
			Help: "Total number of full snapshot cycles published.",
		}),
	}
}
