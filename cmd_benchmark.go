package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file wires the command line to the benchmark driver.
//
// FLOW:
//   flags → BenchConfig → Validate → RunWorld(ranks) → RunBench on every
//   rank → leader's suite → JSON / YAML / CSV / metrics / chart
//
// The option names num_iter, s_start, s_end, mult, R and sp match the
// scripts that already drive this benchmark, so existing job files work
// unchanged. Everything else is an addition for running and collecting
// sweeps on different machines:
//
//   # sparse sweep on 4 ranks, keep the results
//   mttkrp-bench --ranks=4 --s_start=64 --s_end=1024 --json=sparse.json
//
//   # the same sweep with dense storage, plus a terminal chart
//   mttkrp-bench --sp=false --s_start=64 --s_end=256 --chart=ascii
//
// ===========================================================================

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/pflag"
)

// ErrInvalidConfig indicates a configuration the benchmark cannot run.
var ErrInvalidConfig = errors.New("bench: invalid config")

// chartFormats lists the accepted --chart values.
var chartFormats = []string{"none", "ascii", "gnuplot"}

// BenchConfig holds command-line options.
type BenchConfig struct {
	NumIter int     `json:"num_iter" yaml:"num_iter"`
	SStart  int     `json:"s_start" yaml:"s_start"`
	SEnd    int     `json:"s_end" yaml:"s_end"`
	Mult    float64 `json:"mult" yaml:"mult"`
	R       int     `json:"R" yaml:"R"`
	Sparse  bool    `json:"sp" yaml:"sp"`

	Ranks   int    `json:"ranks" yaml:"ranks"`
	Workers int    `json:"workers" yaml:"workers"`
	Seed    uint64 `json:"seed" yaml:"seed"`

	JSONPath    string `json:"-" yaml:"-"`
	YAMLPath    string `json:"-" yaml:"-"`
	CSVPath     string `json:"-" yaml:"-"`
	MetricsPath string `json:"-" yaml:"-"`
	Chart       string `json:"-" yaml:"-"`
	LogLevel    string `json:"-" yaml:"-"`
}

// DefaultBenchConfig returns the defaults used by the existing job scripts.
func DefaultBenchConfig() BenchConfig {
	return BenchConfig{
		NumIter:  10,
		SStart:   100,
		SEnd:     400,
		Mult:     2,
		R:        10,
		Sparse:   true,
		Ranks:    1,
		Workers:  0,
		Chart:    "none",
		LogLevel: "warn",
	}
}

// bindFlags registers every option on fs, writing into cfg.
func (cfg *BenchConfig) bindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&cfg.NumIter, "num_iter", cfg.NumIter, "Iterations per size")
	fs.IntVar(&cfg.SStart, "s_start", cfg.SStart, "First tensor dimension; s_start^3 is the nonzero count for the whole run")
	fs.IntVar(&cfg.SEnd, "s_end", cfg.SEnd, "Largest tensor dimension")
	fs.Float64Var(&cfg.Mult, "mult", cfg.Mult, "Size multiplier between steps (> 1)")
	fs.IntVar(&cfg.R, "R", cfg.R, "Factor matrix rank")
	fs.BoolVar(&cfg.Sparse, "sp", cfg.Sparse, "Use sparse (COO) tensor storage")

	fs.IntVar(&cfg.Ranks, "ranks", cfg.Ranks, "Number of SPMD ranks")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Goroutines per rank (0 = NumCPU)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = from clock)")

	fs.StringVar(&cfg.JSONPath, "json", cfg.JSONPath, "Write the suite as JSON to this file")
	fs.StringVar(&cfg.YAMLPath, "yaml", cfg.YAMLPath, "Write the suite as YAML to this file")
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Write the summary table as CSV to this file")
	fs.StringVar(&cfg.MetricsPath, "metrics", cfg.MetricsPath, "Write Prometheus textfile metrics to this file")
	fs.StringVar(&cfg.Chart, "chart", cfg.Chart, "Chart after the run (none, ascii, gnuplot)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// Validate rejects configurations that cannot produce a run.
// s_start > s_end is allowed and yields an empty table.
func (cfg BenchConfig) Validate() error {
	switch {
	case cfg.NumIter < 1:
		return fmt.Errorf("%w: num_iter must be >= 1, got %d", ErrInvalidConfig, cfg.NumIter)
	case cfg.SStart < 1:
		return fmt.Errorf("%w: s_start must be >= 1, got %d", ErrInvalidConfig, cfg.SStart)
	case cfg.Mult <= 1:
		return fmt.Errorf("%w: mult must be > 1, got %g", ErrInvalidConfig, cfg.Mult)
	case cfg.R < 1:
		return fmt.Errorf("%w: R must be >= 1, got %d", ErrInvalidConfig, cfg.R)
	case cfg.Ranks < 1:
		return fmt.Errorf("%w: ranks must be >= 1, got %d", ErrInvalidConfig, cfg.Ranks)
	case cfg.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, cfg.Workers)
	case cfg.Chart != "" && !slices.Contains(chartFormats, cfg.Chart):
		return fmt.Errorf("%w: unknown chart format %q", ErrInvalidConfig, cfg.Chart)
	}
	return nil
}

// ComputeConfig derives the per-rank parallelism settings.
func (cfg BenchConfig) ComputeConfig() ComputeConfig {
	cc := DefaultComputeConfig()
	cc.NumWorkers = cfg.Workers
	if cfg.Workers == 1 {
		cc = SingleThreadedConfig()
	}
	return cc
}

// EchoLine is the configuration line printed before the sweep.
func (cfg BenchConfig) EchoLine() string {
	return fmt.Sprint("num_iter is ", cfg.NumIter, " s_start is ", cfg.SStart, " s_end is ", cfg.SEnd,
		" mult is ", formatFloat(cfg.Mult), " R is ", cfg.R, " sp is ", cfg.Sparse)
}

// RunBenchCommand validates cfg, runs the sweep on cfg.Ranks ranks and
// writes the requested reports. Text output goes to out.
func RunBenchCommand(ctx context.Context, cfg BenchConfig, out io.Writer) (*BenchmarkSuite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SStart > cfg.SEnd {
		slog.Warn("s_start exceeds s_end, no sizes will run", "s_start", cfg.SStart, "s_end", cfg.SEnd)
	}

	metrics := NewMetrics()

	var suite *BenchmarkSuite
	err := RunWorld(ctx, cfg.Ranks, func(ctx context.Context, c *Comm) error {
		if c.IsLeader() {
			fmt.Fprintln(out, cfg.EchoLine())
		}
		s, err := RunBench(ctx, c, cfg, out, metrics)
		if err != nil {
			return err
		}
		if c.IsLeader() {
			suite = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := writeReports(suite, metrics, cfg, out); err != nil {
		return suite, err
	}
	return suite, nil
}

// writeReports saves the files and renders the chart requested in cfg.
func writeReports(suite *BenchmarkSuite, metrics *Metrics, cfg BenchConfig, out io.Writer) error {
	if cfg.JSONPath != "" {
		if err := suite.SaveJSON(cfg.JSONPath); err != nil {
			return fmt.Errorf("failed to save JSON: %w", err)
		}
		slog.Info("saved results", "format", "json", "path", cfg.JSONPath)
	}

	if cfg.YAMLPath != "" {
		if err := suite.SaveYAML(cfg.YAMLPath); err != nil {
			return fmt.Errorf("failed to save YAML: %w", err)
		}
		slog.Info("saved results", "format", "yaml", "path", cfg.YAMLPath)
	}

	if cfg.CSVPath != "" {
		if err := suite.SaveCSV(cfg.CSVPath); err != nil {
			return fmt.Errorf("failed to save CSV: %w", err)
		}
		slog.Info("saved results", "format", "csv", "path", cfg.CSVPath)
	}

	if cfg.MetricsPath != "" {
		if err := metrics.WriteTextfile(cfg.MetricsPath); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		slog.Info("saved metrics", "path", cfg.MetricsPath)
	}

	if cfg.Chart != "" && cfg.Chart != "none" {
		vizConfig := DefaultVisualizationConfig()
		vizConfig.Format = cfg.Chart
		if err := GenerateVisualization(out, suite, vizConfig); err != nil {
			return fmt.Errorf("failed to generate visualization: %w", err)
		}
	}

	return nil
}
