package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()

	m.ObserveContraction(0, "sparse", 0.01)
	m.ObserveContraction(1, "sparse", 0.02)
	m.ObserveContraction(2, "sparse", 0.03)
	m.IncIterations("sparse")
	m.IncIterations("sparse")
	m.SetSizeMean(64, "sparse", 0.02)
	m.SetSizeMean(128, "sparse", 0.025)

	assert.Equal(t, 3, testutil.CollectAndCount(m.contractionSeconds))
	assert.Equal(t, 2, testutil.CollectAndCount(m.sizeMeanSeconds))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.iterationsTotal.WithLabelValues("sparse")))
	assert.Equal(t, 0.025, testutil.ToFloat64(m.sizeMeanSeconds.WithLabelValues("128", "sparse")))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveContraction(0, "dense", 1)
		m.SetSizeMean(4, "dense", 1)
		m.IncIterations("dense")
	})
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.IncIterations("dense")
	m.SetSizeMean(8, "dense", 0.5)

	path := filepath.Join(t.TempDir(), "mttkrp.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `mttkrp_bench_iterations_total{format="dense"} 1`)
	assert.Contains(t, text, `mttkrp_bench_size_mean_seconds{format="dense",size="8"} 0.5`)
}
