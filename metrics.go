package main

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mttkrp_bench"

// Metrics records contraction timings in a private Prometheus registry.
// A nil *Metrics is valid and records nothing, which is what non-leader
// ranks get.
type Metrics struct {
	registry *prometheus.Registry

	contractionSeconds *prometheus.HistogramVec
	sizeMeanSeconds    *prometheus.GaugeVec
	iterationsTotal    *prometheus.CounterVec
}

// NewMetrics creates the benchmark collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		contractionSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "contraction_seconds",
				Help:      "Wall time of one MTTKRP factor update by mode and storage format",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 14),
			},
			[]string{"mode", "format"},
		),
		sizeMeanSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "size_mean_seconds",
				Help:      "Mean contraction time per tensor size",
			},
			[]string{"size", "format"},
		),
		iterationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "iterations_total",
				Help:      "Completed three-mode iterations",
			},
			[]string{"format"},
		),
	}

	m.registry.MustRegister(m.contractionSeconds, m.sizeMeanSeconds, m.iterationsTotal)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveContraction records one factor update.
func (m *Metrics) ObserveContraction(mode int, format string, seconds float64) {
	if m == nil {
		return
	}
	m.contractionSeconds.WithLabelValues(strconv.Itoa(mode), format).Observe(seconds)
}

// SetSizeMean records the mean time of a finished size.
func (m *Metrics) SetSizeMean(size int, format string, seconds float64) {
	if m == nil {
		return
	}
	m.sizeMeanSeconds.WithLabelValues(strconv.Itoa(size), format).Set(seconds)
}

// IncIterations counts one completed iteration.
func (m *Metrics) IncIterations(format string) {
	if m == nil {
		return
	}
	m.iterationsTotal.WithLabelValues(format).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
