package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// Metrics exposes Prometheus collectors that report compilation activity.
type Metrics struct {
	compilations *prometheus.CounterVec
	buildErrors  *prometheus.CounterVec
	duration     prometheus.Histogram
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Tests pass a fresh registry; registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aides",
				Name:      "compilations_total",
				Help:      "Compilations served, by outcome.",
			},
			[]string{"outcome"},
		),
		buildErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aides",
				Name:      "build_errors_total",
				Help:      "Build errors recorded by strict compilations, by type.",
			},
			[]string{"type"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "aides",
				Name:      "compilation_duration_seconds",
				Help:      "Time spent compiling one answer set.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
	}
	reg.MustRegister(m.compilations, m.buildErrors, m.duration)
	return m
}

// Observe records one compilation.
func (m *Metrics) Observe(outcome generic.Outcome, errs generic.BuildErrors, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.compilations.WithLabelValues(string(outcome)).Inc()
	for t, n := range errs.CountByType() {
		m.buildErrors.WithLabelValues(string(t)).Add(float64(n))
	}
	m.duration.Observe(elapsed.Seconds())
}
