package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the notification engine.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	Subscriptions *prometheus.CounterVec // label: outcome={committed,throttled,failed}
	AlertsSent    prometheus.Counter
	FetchErrors   prometheus.Counter
	CycleDuration prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bird_alerts",
			Name:      "cycles_total",
			Help:      "Total notification cycles run.",
		}),
		Subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bird_alerts",
			Name:      "subscriptions_processed_total",
			Help:      "Subscriptions processed per cycle, by outcome.",
		}, []string{"outcome"}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bird_alerts",
			Name:      "alerts_sent_total",
			Help:      "Total SMS alerts dispatched.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bird_alerts",
			Name:      "fetch_errors_total",
			Help:      "Total feed fetch failures.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bird_alerts",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one full pass over all subscriptions.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.Subscriptions,
		m.AlertsSent,
		m.FetchErrors,
		m.CycleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bird_alerts", Name: "cycles_total"}),
		Subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "bird_alerts", Name: "subscriptions_processed_total"}, []string{"outcome"}),
		AlertsSent:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bird_alerts", Name: "alerts_sent_total"}),
		FetchErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bird_alerts", Name: "fetch_errors_total"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "bird_alerts", Name: "cycle_duration_seconds"}),
	}
}
