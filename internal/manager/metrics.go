package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	backendLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "backend",
			Name:      "loads_total",
			Help:      "Backend acquisitions by result",
		},
		[]string{"result"},
	)

	backendLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "modelgate",
			Subsystem: "backend",
			Name:      "load_duration_seconds",
			Help:      "Time from spawn/instantiation to readiness",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	backendEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "backend",
			Name:      "evictions_total",
			Help:      "Backend evictions by reason",
		},
		[]string{"reason"},
	)

	backendsReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelgate",
			Subsystem: "backend",
			Name:      "ready",
			Help:      "Number of backends currently ready",
		},
	)

	inferenceInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelgate",
			Subsystem: "inference",
			Name:      "inflight",
			Help:      "In-flight inference calls across all backends",
		},
	)

	reaperFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "reaper",
			Name:      "failures_total",
			Help:      "Per-backend failures during idle sweeps",
		},
	)
)

func init() {
	prometheus.MustRegister(backendLoadsTotal, backendLoadDuration, backendEvictionsTotal, backendsReady, inferenceInflight, reaperFailuresTotal)
}
