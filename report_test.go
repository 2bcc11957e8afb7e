package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeSuite builds a suite with made-up timings for the given sizes.
func fakeSuite(sparse bool, scale float64, sizes ...int) *BenchmarkSuite {
	cfg := DefaultBenchConfig()
	cfg.Sparse = sparse
	suite := NewBenchmarkSuite(cfg)
	for _, s := range sizes {
		mean := scale * float64(s)
		suite.Results = append(suite.Results, SizeResult{
			Size:      s,
			Sparse:    sparse,
			NNZTarget: 64,
			NNZTotal:  64,
			Density:   64 / float64(s*s*s),
			Samples:   []float64{mean},
			Stats: SizeStats{
				Min:   mean * 0.9,
				Min95: mean * 0.8,
				Mean:  mean,
				Max95: mean * 1.2,
				Max:   mean * 1.1,
			},
		})
	}
	return suite
}

func TestSuiteJSONRoundTrip(t *testing.T) {
	suite := fakeSuite(true, 1e-3, 4, 8)
	path := filepath.Join(t.TempDir(), "suite.json")

	require.NoError(t, suite.SaveJSON(path))
	loaded, err := LoadSuiteJSON(path)
	require.NoError(t, err)

	assert.Equal(t, suite.RunID, loaded.RunID)
	assert.Equal(t, suite.Config.NumIter, loaded.Config.NumIter)
	assert.Equal(t, suite.Columns(), loaded.Columns())
	assert.Empty(t, loaded.Config.JSONPath)
}

func TestLoadSuiteJSONErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSuiteJSON(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadSuiteJSON(bad)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestSuiteYAML(t *testing.T) {
	suite := fakeSuite(false, 1e-2, 4)
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, suite.SaveYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, suite.RunID, doc["run_id"])

	cfg, ok := doc["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, cfg["sp"])
	assert.NotContains(t, cfg, "JSONPath")
}

func TestSuiteCSV(t *testing.T) {
	suite := fakeSuite(true, 1e-3, 4, 8, 16)

	var buf bytes.Buffer
	require.NoError(t, suite.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"run_id", "os", "arch", "cores", "ranks", "format", "R",
		"s", "nnz", "nnz_tot", "sp_frac", "min_time", "min_95", "avg_time", "max_95", "max_time"}, records[0])
	assert.Equal(t, "sparse", records[1][5])
	assert.Equal(t, "16", records[3][7])
	assert.Equal(t, "0.015625", records[3][10])
}
