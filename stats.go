package main

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidSize indicates a non-positive starting size.
	ErrInvalidSize = errors.New("bench: invalid size")

	// ErrStalledSequence indicates a multiplier that fails to grow the size.
	ErrStalledSequence = errors.New("bench: size sequence does not increase")
)

// SizeSequence returns start, ⌊start·mult⌋, ⌊⌊start·mult⌋·mult⌋, ... up to
// and including end. start > end gives an empty sequence.
//
// Truncation can stall growth even for mult > 1 (4·1.1 truncates back
// to 4), so every step is checked for strict increase.
func SizeSequence(start, end int, mult float64) ([]int, error) {
	if start <= 0 {
		return nil, fmt.Errorf("%w: s_start must be positive, got %d", ErrInvalidSize, start)
	}

	var sizes []int
	for s := start; s <= end; {
		sizes = append(sizes, s)
		next := int(float64(s) * mult)
		if next <= s {
			return nil, fmt.Errorf("%w: %d * %g = %d", ErrStalledSequence, s, mult, next)
		}
		s = next
	}
	return sizes, nil
}

// SizeStats summarizes the timings of one size, in seconds.
type SizeStats struct {
	Min   float64 `json:"min_time" yaml:"min_time"`
	Min95 float64 `json:"min_95" yaml:"min_95"`
	Mean  float64 `json:"avg_time" yaml:"avg_time"`
	Max95 float64 `json:"max_95" yaml:"max_95"`
	Max   float64 `json:"max_time" yaml:"max_time"`
}

// Summarize computes the per-size statistics.
//
// Min and Max range over the per-iteration sample means. Mean is the sum
// of every variant time over 3·numIter. The ±2σ band uses the population
// standard deviation of the sample means but is centred on Mean, not on
// the average of the samples. The two centres agree up to rounding; the
// report keeps the total-time one.
func Summarize(samples []float64, variantTotals [3]float64, numIter int) SizeStats {
	if len(samples) == 0 || numIter <= 0 {
		return SizeStats{}
	}

	mean := floats.Sum(variantTotals[:]) / float64(3*numIter)
	_, variance := stat.PopMeanVariance(samples, nil)
	sd := math.Sqrt(variance)

	return SizeStats{
		Min:   floats.Min(samples),
		Min95: mean - 2*sd,
		Mean:  mean,
		Max95: mean + 2*sd,
		Max:   floats.Max(samples),
	}
}
