package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ambient Prometheus instrumentation for the
// participant-side market-data consumer.
type Metrics struct {
	RecoveriesEntered   prometheus.Counter
	RecoveriesCompleted prometheus.Counter
}

// NewMetrics registers and returns the consumer metric collectors against
// the default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RecoveriesEntered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_md_recoveries_entered_total",
			Help: "Total number of times the consumer entered RECOVERING state.",
		}),
		RecoveriesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_md_recoveries_completed_total",
			Help: "Total number of recovery cycles that completed successfully.",
		}),
	}
}
