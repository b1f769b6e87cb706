package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"fitroom/internal/events"
)

var (
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fitroom",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of try-on generations",
			Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300, 600},
		},
		[]string{"variant", "backend", "model_type", "status"},
	)

	downgradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fitroom",
			Subsystem: "generation",
			Name:      "downgrades_total",
			Help:      "Runs retried on CPU after a unified-memory runtime failure",
		},
	)

	loadFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitroom",
			Subsystem: "pipeline",
			Name:      "load_fallbacks_total",
			Help:      "Pipeline loads that fell back to the secondary model type",
		},
		[]string{"requested"},
	)

	blacklistingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitroom",
			Subsystem: "variant",
			Name:      "blacklistings_total",
			Help:      "Variants blacklisted for exceeding their latency ceiling",
		},
		[]string{"variant"},
	)

	variantAvgSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fitroom",
			Subsystem: "variant",
			Name:      "avg_generation_seconds",
			Help:      "Smoothed generation time per variant",
		},
		[]string{"variant"},
	)
)

func init() {
	prometheus.MustRegister(generationDuration, downgradesTotal, loadFallbacksTotal, blacklistingsTotal, variantAvgSeconds)
}

// MetricsPublisher returns a publisher that feeds the domain counters and
// forwards every event to next. Give the same publisher to the loader, the
// tracker and Deps.Publisher so fallbacks, blacklistings and downgrades are
// all counted.
func MetricsPublisher(next events.Publisher) events.Publisher {
	if next == nil {
		return metricsPublisher{}
	}
	return events.Fanout{next, metricsPublisher{}}
}

type metricsPublisher struct{}

func (metricsPublisher) Publish(e events.Event) {
	switch e.Name {
	case "downgrade":
		downgradesTotal.Inc()
	case "load_fallback":
		loadFallbacksTotal.WithLabelValues(e.Subject).Inc()
	case "blacklisted":
		blacklistingsTotal.WithLabelValues(e.Subject).Inc()
	}
}
