package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file is the benchmark driver: a scaling sweep over MTTKRP, the
// kernel at the heart of CP-ALS tensor decomposition.
//
// For each size s in s_start, s_start·mult, s_start·mult², ... ≤ s_end:
//
//   1. build a fresh s×s×s tensor with s_start³ nonzeros
//   2. build fresh factors U, V, W of shape (s, R)
//   3. num_iter times: U ← T×(V,W), V ← T×(U,W), W ← T×(U,V), timing each
//   4. reduce the timings to min / ±2σ band / mean / max
//
// WHY A FIXED NONZERO COUNT:
// The number of nonzeros stays at s_start³ while the index space grows as
// s³. Density therefore drops by mult³ per step:
//
//   s_start=4, mult=2:   s=4 → 64/64 = 1.0
//                        s=8 → 64/512 = 0.125
//                        s=16 → 64/4096 ≈ 0.0156
//
// A sparse kernel should stay roughly flat along that curve, because its
// work tracks nnz. A dense kernel grows with s³. The sweep makes the gap
// visible. The policy is intentional: do not change it to constant density.
//
// DISTRIBUTED EXECUTION:
// Every rank runs this exact code. The leader generates the random
// instance and broadcasts it; contractions are collective; only the leader
// writes to the output. Non-leaders write to io.Discard so control flow
// stays identical across ranks.
//
// ===========================================================================

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SizeResult holds everything measured at one size.
type SizeResult struct {
	Size         int          `json:"s" yaml:"s"`
	Sparse       bool         `json:"sp" yaml:"sp"`
	NNZTarget    int          `json:"nnz" yaml:"nnz"`
	NNZTotal     int          `json:"nnz_tot" yaml:"nnz_tot"`
	Density      float64      `json:"sp_frac" yaml:"sp_frac"`
	Iterations   [][3]float64 `json:"iterations" yaml:"iterations"`
	Samples      []float64    `json:"avg_times" yaml:"avg_times"`
	VariantMeans [3]float64   `json:"variant_means" yaml:"variant_means"`
	Stats        SizeStats    `json:"stats" yaml:"stats"`
}

// BenchmarkSuite is the outcome of one sweep.
type BenchmarkSuite struct {
	RunID     string       `json:"run_id" yaml:"run_id"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Hardware  HardwareInfo `json:"hardware" yaml:"hardware"`
	Config    BenchConfig  `json:"config" yaml:"config"`
	Results   []SizeResult `json:"results" yaml:"results"`
}

// SummaryColumns are the aggregate sequences, indexed by position in the
// size sequence.
type SummaryColumns struct {
	Sizes  []int
	Mins   []float64
	Min95s []float64
	Means  []float64
	Max95s []float64
	Maxs   []float64
}

// NewBenchmarkSuite creates an empty suite for cfg.
func NewBenchmarkSuite(cfg BenchConfig) *BenchmarkSuite {
	return &BenchmarkSuite{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Hardware:  DetectHardware(),
		Config:    cfg,
		Results:   make([]SizeResult, 0),
	}
}

// Columns returns the summary table as parallel slices.
func (suite *BenchmarkSuite) Columns() SummaryColumns {
	var cols SummaryColumns
	for _, r := range suite.Results {
		cols.Sizes = append(cols.Sizes, r.Size)
		cols.Mins = append(cols.Mins, r.Stats.Min)
		cols.Min95s = append(cols.Min95s, r.Stats.Min95)
		cols.Means = append(cols.Means, r.Stats.Mean)
		cols.Max95s = append(cols.Max95s, r.Stats.Max95)
		cols.Maxs = append(cols.Maxs, r.Stats.Max)
	}
	return cols
}

// PrintSummary writes the final table.
func (suite *BenchmarkSuite) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "s min_time min_95 avg_time max_95 max_time")
	for _, r := range suite.Results {
		fmt.Fprintln(w, r.Size,
			formatFloat(r.Stats.Min),
			formatFloat(r.Stats.Min95),
			formatFloat(r.Stats.Mean),
			formatFloat(r.Stats.Max95),
			formatFloat(r.Stats.Max))
	}
}

// instance is the random problem broadcast from the leader.
type instance struct {
	t       Tensor3
	u, v, w *Tensor
}

// RunBench runs the sweep on one rank. All ranks of c must call it with
// the same cfg. Text goes to out on the leader only; metrics may be nil.
func RunBench(ctx context.Context, c *Comm, cfg BenchConfig, out io.Writer, metrics *Metrics) (*BenchmarkSuite, error) {
	if !c.IsLeader() {
		out = io.Discard
		metrics = nil
	}

	sizes, err := SizeSequence(cfg.SStart, cfg.SEnd, cfg.Mult)
	if err != nil {
		return nil, err
	}

	log := c.Logger()
	log.Debug("size sequence", "sizes", sizes, "sparse", cfg.Sparse, "R", cfg.R)

	var rng *rand.Rand
	if c.IsLeader() {
		rng = newRNG(cfg.Seed)
	}

	engine := NewEngine(cfg.ComputeConfig())
	suite := NewBenchmarkSuite(cfg)
	nnz := cfg.SStart * cfg.SStart * cfg.SStart

	for _, s := range sizes {
		res, err := runSize(ctx, c, engine, rng, cfg, s, nnz, out, metrics)
		if err != nil {
			return nil, fmt.Errorf("size %d: %w", s, err)
		}
		suite.Results = append(suite.Results, res)
	}

	st := engine.Stats()
	log.Debug("sweep done", "contractions", st.TotalOps, "parallel", st.ParallelOps,
		"busy", time.Duration(st.TotalTimeNs))

	suite.PrintSummary(out)
	return suite, nil
}

// runSize builds one problem instance and times num_iter rounds of the
// three factor updates on it.
func runSize(ctx context.Context, c *Comm, engine *Engine, rng *rand.Rand,
	cfg BenchConfig, s, nnz int, out io.Writer, metrics *Metrics) (SizeResult, error) {

	frac := float64(nnz) / (float64(s) * float64(s) * float64(s))

	var inst *instance
	if c.IsLeader() {
		t := NewCube(s, cfg.Sparse)
		t.FillSparseRandom(rng, -1, 1, frac)
		inst = &instance{
			t: t,
			u: NewTensorUniform(rng, 0, 1, s, cfg.R),
			v: NewTensorUniform(rng, 0, 1, s, cfg.R),
			w: NewTensorUniform(rng, 0, 1, s, cfg.R),
		}
	}
	inst, err := Broadcast(ctx, c, LeaderRank, inst)
	if err != nil {
		return SizeResult{}, fmt.Errorf("broadcast instance: %w", err)
	}

	t := inst.t
	fmt.Fprintln(out, "T sp =", t.IsSparse(), "nnz_tot =", t.NNZTotal(), "sp_frac is", formatFloat(frac))

	res := SizeResult{
		Size:       s,
		Sparse:     t.IsSparse(),
		NNZTarget:  nnz,
		NNZTotal:   t.NNZTotal(),
		Density:    frac,
		Iterations: make([][3]float64, 0, cfg.NumIter),
		Samples:    make([]float64, 0, cfg.NumIter),
	}

	format := storageName(cfg.Sparse)
	u, v, w := inst.u, inst.v, inst.w
	var totals [3]float64

	for i := 0; i < cfg.NumIter; i++ {
		var times [3]float64

		t0 := time.Now()
		if u, err = engine.MTTKRP(ctx, c, 0, t, v, w); err != nil {
			return SizeResult{}, err
		}
		times[0] = time.Since(t0).Seconds()

		t0 = time.Now()
		if v, err = engine.MTTKRP(ctx, c, 1, t, u, w); err != nil {
			return SizeResult{}, err
		}
		times[1] = time.Since(t0).Seconds()

		t0 = time.Now()
		if w, err = engine.MTTKRP(ctx, c, 2, t, u, v); err != nil {
			return SizeResult{}, err
		}
		times[2] = time.Since(t0).Seconds()

		avg := (times[0] + times[1] + times[2]) / 3
		for m := range times {
			totals[m] += times[m]
			metrics.ObserveContraction(m, format, times[m])
		}
		metrics.IncIterations(format)

		fmt.Fprintln(out, formatFloat(times[0]), formatFloat(times[1]), formatFloat(times[2]),
			"avg:", formatFloat(avg))
		res.Iterations = append(res.Iterations, times)
		res.Samples = append(res.Samples, avg)
	}

	n := float64(cfg.NumIter)
	res.VariantMeans = [3]float64{totals[0] / n, totals[1] / n, totals[2] / n}
	res.Stats = Summarize(res.Samples, totals, cfg.NumIter)
	metrics.SetSizeMean(s, format, res.Stats.Mean)

	fmt.Fprintln(out, "Completed", cfg.NumIter, "iterations, took",
		formatFloat(res.VariantMeans[0]), formatFloat(res.VariantMeans[1]), formatFloat(res.VariantMeans[2]),
		"seconds on average for 3 variants.")
	fmt.Fprintln(out, "MTTKRP took", formatFloatList(res.Samples),
		"seconds on average across variants with s =", s, "nnz =", nnz, "sp", cfg.Sparse)
	fmt.Fprintln(out, "min/max interval is [", formatFloat(res.Stats.Min), ",", formatFloat(res.Stats.Max), "]")
	fmt.Fprintln(out, "95% confidence interval is [", formatFloat(res.Stats.Min95), ",", formatFloat(res.Stats.Max95), "]")

	return res, nil
}

// newRNG seeds a PCG source; seed 0 means "seed from the clock".
func newRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func storageName(sparse bool) string {
	if sparse {
		return "sparse"
	}
	return "dense"
}

// formatFloat prints the shortest representation that round-trips,
// always with a decimal point or exponent so columns read as floats.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func formatFloatList(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
