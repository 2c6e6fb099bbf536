package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	UpdatesTotal         *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics builds the bot collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spacehub",
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Telegram updates by command.",
		}, []string{"command"}),
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spacehub",
			Subsystem: "bot",
			Name:      "errors_total",
			Help:      "Updates that failed or panicked.",
		}),
		UpdateProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spacehub",
			Subsystem: "bot",
			Name:      "update_processing_seconds",
			Help:      "Time spent processing updates",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.UpdatesTotal, m.ErrorsTotal, m.UpdateProcessingTime)
	}
	return m
}
