package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveJSON saves the suite to a JSON file.
func (suite *BenchmarkSuite) SaveJSON(filename string) error {
	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// SaveYAML saves the suite to a YAML file.
func (suite *BenchmarkSuite) SaveYAML(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(suite); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// LoadSuiteJSON reads a suite written by SaveJSON.
func LoadSuiteJSON(filename string) (*BenchmarkSuite, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var suite BenchmarkSuite
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return &suite, nil
}

// SaveCSV saves the summary table to a CSV file.
func (suite *BenchmarkSuite) SaveCSV(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return suite.WriteCSV(f)
}

// WriteCSV writes one row per size with the run's platform and storage.
func (suite *BenchmarkSuite) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"run_id", "os", "arch", "cores", "ranks", "format", "R",
		"s", "nnz", "nnz_tot", "sp_frac", "min_time", "min_95", "avg_time", "max_95", "max_time"}
	if err := cw.Write(header); err != nil {
		return err
	}

	ff := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	for _, r := range suite.Results {
		row := []string{
			suite.RunID,
			suite.Hardware.OS,
			suite.Hardware.Arch,
			strconv.Itoa(suite.Hardware.NumCPU),
			strconv.Itoa(suite.Config.Ranks),
			storageName(r.Sparse),
			strconv.Itoa(suite.Config.R),
			strconv.Itoa(r.Size),
			strconv.Itoa(r.NNZTarget),
			strconv.Itoa(r.NNZTotal),
			ff(r.Density),
			ff(r.Stats.Min),
			ff(r.Stats.Min95),
			ff(r.Stats.Mean),
			ff(r.Stats.Max95),
			ff(r.Stats.Max),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
