package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file turns a suite into pictures of the scaling curve.
//
// VISUALIZATIONS GENERATED:
//
// 1. ASCII bar chart (terminal)
//    - one bar per size, length proportional to mean time
//    - the ±2σ band printed next to each bar
//
// 2. gnuplot script
//    - X-axis: tensor dimension s (log scale)
//    - Y-axis: seconds per contraction (log scale)
//    - error bars from min_95 to max_95, plus the min/max envelope
//
// 3. Cross-run comparison (text)
//    - mean time per size for several saved suites side by side, e.g.
//      sparse vs dense, 1 rank vs 4 ranks, or two machines
//
// READING THE CURVE:
// With a fixed nonzero count a sparse run should be roughly flat in s,
// while a dense run climbs as s³. A sparse curve that climbs means the
// kernel pays for the index space rather than for the nonzeros.
//
// ===========================================================================

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
)

// VisualizationConfig controls output format and style.
type VisualizationConfig struct {
	Format   string // "gnuplot", "ascii"
	Width    int
	Height   int
	LogScale bool
	BarWidth int
}

// DefaultVisualizationConfig returns sensible defaults.
func DefaultVisualizationConfig() VisualizationConfig {
	return VisualizationConfig{
		Format:   "ascii",
		Width:    1200,
		Height:   800,
		LogScale: true,
		BarWidth: 60,
	}
}

// GenerateVisualization renders the suite in the configured format.
func GenerateVisualization(w io.Writer, suite *BenchmarkSuite, config VisualizationConfig) error {
	switch config.Format {
	case "gnuplot":
		_, err := io.WriteString(w, generateGnuplotScript(suite, config))
		return err
	case "ascii":
		return generateASCIIChart(w, suite, config)
	default:
		return fmt.Errorf("unknown format: %s", config.Format)
	}
}

// generateGnuplotScript creates a gnuplot script of mean time vs size.
func generateGnuplotScript(suite *BenchmarkSuite, config VisualizationConfig) string {
	var sb strings.Builder

	sb.WriteString("#!/usr/bin/gnuplot\n")
	sb.WriteString("reset\n")
	fmt.Fprintf(&sb, "set terminal pngcairo size %d,%d enhanced font 'Arial,12'\n", config.Width, config.Height)
	sb.WriteString("set output 'mttkrp_scaling.png'\n\n")

	fmt.Fprintf(&sb, "set title 'MTTKRP scaling (%s, R=%d, %d ranks)\\n%s (%d cores)'\n",
		storageName(suite.Config.Sparse), suite.Config.R, suite.Config.Ranks,
		suite.Hardware.CPUModel, suite.Hardware.NumCPU)
	sb.WriteString("set xlabel 'Tensor dimension s'\n")
	sb.WriteString("set ylabel 'Seconds per contraction'\n")
	if config.LogScale {
		sb.WriteString("set logscale xy\n")
	}
	sb.WriteString("set grid\n")
	sb.WriteString("set key top left\n\n")

	sb.WriteString("# s min_time min_95 avg_time max_95 max_time\n")
	sb.WriteString("$data << EOD\n")
	for _, r := range suite.Results {
		fmt.Fprintf(&sb, "%d %g %g %g %g %g\n",
			r.Size, r.Stats.Min, r.Stats.Min95, r.Stats.Mean, r.Stats.Max95, r.Stats.Max)
	}
	sb.WriteString("EOD\n\n")

	sb.WriteString("plot $data using 1:4:3:5 with yerrorlines lw 2 pt 7 title 'mean ±2σ', \\\n")
	sb.WriteString("     $data using 1:2 with lines dt 2 title 'min', \\\n")
	sb.WriteString("     $data using 1:6 with lines dt 2 title 'max'\n")

	return sb.String()
}

// generateASCIIChart creates a terminal-friendly bar chart of mean time.
func generateASCIIChart(w io.Writer, suite *BenchmarkSuite, config VisualizationConfig) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== MTTKRP Scaling (ASCII) ===")
	fmt.Fprintln(w)

	if len(suite.Results) == 0 {
		fmt.Fprintln(w, "(no sizes)")
		return nil
	}

	maxMean := 0.0
	for _, r := range suite.Results {
		maxMean = math.Max(maxMean, r.Stats.Mean)
	}

	barWidth := config.BarWidth
	if barWidth <= 0 {
		barWidth = 60
	}

	fmt.Fprintf(w, "Scale: %s s = %d chars\n", formatFloat(maxMean), barWidth)
	fmt.Fprintln(w)

	for _, r := range suite.Results {
		barLen := 0
		if maxMean > 0 {
			barLen = int(math.Round(r.Stats.Mean / maxMean * float64(barWidth)))
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(w, "s=%-8d │%s %.3es [%.3e, %.3e]\n",
			r.Size, bar, r.Stats.Mean, r.Stats.Min95, r.Stats.Max95)
	}

	fmt.Fprintln(w)
	return nil
}

// CompareSuites prints mean time per size for several suites side by side.
func CompareSuites(w io.Writer, names []string, suites []*BenchmarkSuite) {
	fmt.Fprintln(w, "=== Run Comparison ===")
	fmt.Fprintln(w)

	var sizes []int
	means := make([]map[int]float64, len(suites))
	for i, suite := range suites {
		means[i] = make(map[int]float64, len(suite.Results))
		for _, r := range suite.Results {
			means[i][r.Size] = r.Stats.Mean
			if !slices.Contains(sizes, r.Size) {
				sizes = append(sizes, r.Size)
			}
		}
	}
	slices.Sort(sizes)

	fmt.Fprintf(w, "%-8s", "s")
	for i, suite := range suites {
		label := fmt.Sprintf("%s (%s, %d ranks)", names[i], storageName(suite.Config.Sparse), suite.Config.Ranks)
		fmt.Fprintf(w, " %28s", label)
	}
	fmt.Fprintln(w)

	for _, s := range sizes {
		fmt.Fprintf(w, "%-8d", s)
		for i := range suites {
			if m, ok := means[i][s]; ok {
				fmt.Fprintf(w, " %28.4e", m)
			} else {
				fmt.Fprintf(w, " %28s", "-")
			}
		}
		fmt.Fprintln(w)
	}

	if len(suites) > 1 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Speedup of %s relative to %s:\n", names[len(names)-1], names[0])
		base, last := means[0], means[len(means)-1]
		for _, s := range sizes {
			b, okb := base[s]
			l, okl := last[s]
			if okb && okl && l > 0 {
				fmt.Fprintf(w, "  s=%-8d %.2fx\n", s, b/l)
			}
		}
	}

	fmt.Fprintln(w)
}
