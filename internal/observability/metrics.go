// Package observability holds the Prometheus instrumentation for the wind
// retrieval pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histograms shared by the orchestrator and
// the HTTP service.
type Metrics struct {
	RetrievalsTotal   *prometheus.CounterVec // label: outcome={ok,failed}
	PixelsTotal       *prometheus.CounterVec // label: flag
	RetrievalDuration prometheus.Histogram
}

// NewMetrics creates and registers all retrieval metrics with the given
// registerer (use prometheus.DefaultRegisterer in production).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RetrievalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sarwind",
			Name:      "retrievals_total",
			Help:      "Total wind retrievals by outcome.",
		}, []string{"outcome"}),
		PixelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sarwind",
			Name:      "pixels_total",
			Help:      "Total processed pixels by quality flag.",
		}, []string{"flag"}),
		RetrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sarwind",
			Name:      "retrieval_duration_seconds",
			Help:      "Wall time of one complete retrieval.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
	}
	reg.MustRegister(m.RetrievalsTotal, m.PixelsTotal, m.RetrievalDuration)
	return m
}
