package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Two storages for the order-3 tensor that MTTKRP contracts:
//
//   SparseTensor: coordinate (COO) format, one (i, j, k, value) tuple per
//                 stored nonzero. Work is proportional to nnz.
//   DenseTensor:  the row-major Tensor from tensor.go. Work is
//                 proportional to s³ regardless of how many entries are zero.
//
// Both are filled the same way: pick round(frac·s³) distinct positions
// uniformly at random and draw each value uniformly from [lo, hi). The
// benchmark keeps the nonzero count fixed while s grows, so frac shrinks
// from 1.0 toward 0 across the sweep. Two samplers cover that range:
//
//   frac > 1/2:  selection sampling (Knuth's Algorithm S), one pass over
//                all positions, no extra memory
//   frac ≤ 1/2:  Floyd's algorithm, O(k) draws with a set of chosen
//                positions; s³ can be far too large to walk
//
// ===========================================================================

// Tensor3 is an order-3 tensor that the contraction engine can shard.
//
// Stored entries are addressed by a flat position in [0, StoredLen()).
// For sparse storage that is the nonzero index. For dense storage it is
// the row-major element offset.
type Tensor3 interface {
	Shape3() [3]int
	// NNZTotal reports stored entries the way CTF's nnz_tot does.
	NNZTotal() int
	StoredLen() int
	IsSparse() bool
	FillSparseRandom(rng *rand.Rand, lo, hi, frac float64)

	// accumulate adds the contribution of stored entries [lo, hi) to
	// out (shape[mode] x r), with f1 and f2 indexed by the other modes.
	accumulate(mode, lo, hi int, f1, f2, out []float64, r int)
}

// NewCube returns an empty s×s×s tensor in the requested storage.
func NewCube(s int, sparse bool) Tensor3 {
	if sparse {
		return NewSparseTensor(s, s, s)
	}
	return NewDenseTensor(s, s, s)
}

// otherModes returns the two modes not equal to mode, ascending.
func otherModes(mode int) (int, int) {
	switch mode {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// SparseTensor is an order-3 tensor in coordinate format.
// Entries are kept in ascending row-major position order.
type SparseTensor struct {
	shape [3]int
	idx   [3][]int
	vals  []float64
}

// NewSparseTensor creates an empty sparse tensor.
func NewSparseTensor(d0, d1, d2 int) *SparseTensor {
	if d0 <= 0 || d1 <= 0 || d2 <= 0 {
		panic(fmt.Sprintf("tensor: sparse shape must be positive, got (%d,%d,%d)", d0, d1, d2))
	}
	return &SparseTensor{shape: [3]int{d0, d1, d2}}
}

func (t *SparseTensor) Shape3() [3]int { return t.shape }
func (t *SparseTensor) NNZTotal() int { return len(t.vals) }
func (t *SparseTensor) StoredLen() int { return len(t.vals) }
func (t *SparseTensor) IsSparse() bool { return true }

// Insert appends a nonzero. Callers inserting by hand must keep
// positions unique; the kernels do not deduplicate.
func (t *SparseTensor) Insert(i, j, k int, v float64) {
	if i < 0 || i >= t.shape[0] || j < 0 || j >= t.shape[1] || k < 0 || k >= t.shape[2] {
		panic(fmt.Sprintf("tensor: sparse index (%d,%d,%d) out of bounds %v", i, j, k, t.shape))
	}
	t.idx[0] = append(t.idx[0], i)
	t.idx[1] = append(t.idx[1], j)
	t.idx[2] = append(t.idx[2], k)
	t.vals = append(t.vals, v)
}

// Entry returns the n-th stored nonzero.
func (t *SparseTensor) Entry(n int) (i, j, k int, v float64) {
	return t.idx[0][n], t.idx[1][n], t.idx[2][n], t.vals[n]
}

// FillSparseRandom replaces the contents with round(frac·size) random
// nonzeros drawn uniformly from [lo, hi).
func (t *SparseTensor) FillSparseRandom(rng *rand.Rand, lo, hi, frac float64) {
	n := t.shape[0] * t.shape[1] * t.shape[2]
	positions := samplePositions(rng, n, targetCount(n, frac))

	for m := range t.idx {
		t.idx[m] = make([]int, 0, len(positions))
	}
	t.vals = make([]float64, 0, len(positions))

	plane := t.shape[1] * t.shape[2]
	span := hi - lo
	for _, p := range positions {
		t.idx[0] = append(t.idx[0], p/plane)
		t.idx[1] = append(t.idx[1], (p/t.shape[2])%t.shape[1])
		t.idx[2] = append(t.idx[2], p%t.shape[2])
		t.vals = append(t.vals, lo+span*rng.Float64())
	}
}

func (t *SparseTensor) accumulate(mode, lo, hi int, f1, f2, out []float64, r int) {
	o1, o2 := otherModes(mode)
	a, b, c := t.idx[mode], t.idx[o1], t.idx[o2]

	for n := lo; n < hi; n++ {
		v := t.vals[n]
		ar, br, cr := a[n]*r, b[n]*r, c[n]*r
		row := out[ar : ar+r]
		x, y := f1[br:br+r], f2[cr:cr+r]
		for q := range row {
			row[q] += v * x[q] * y[q]
		}
	}
}

// DenseTensor is an order-3 view over a dense Tensor.
type DenseTensor struct {
	*Tensor
}

// NewDenseTensor creates a zeroed dense order-3 tensor.
func NewDenseTensor(d0, d1, d2 int) *DenseTensor {
	return &DenseTensor{Tensor: NewTensor(d0, d1, d2)}
}

func (t *DenseTensor) Shape3() [3]int {
	return [3]int{t.shape[0], t.shape[1], t.shape[2]}
}

func (t *DenseTensor) NNZTotal() int { return len(t.data) }
func (t *DenseTensor) StoredLen() int { return len(t.data) }
func (t *DenseTensor) IsSparse() bool { return false }

// FillSparseRandom zeroes the tensor and writes round(frac·size) random
// values drawn uniformly from [lo, hi) at distinct positions.
func (t *DenseTensor) FillSparseRandom(rng *rand.Rand, lo, hi, frac float64) {
	clear(t.data)
	span := hi - lo
	for _, p := range samplePositions(rng, len(t.data), targetCount(len(t.data), frac)) {
		t.data[p] = lo + span*rng.Float64()
	}
}

func (t *DenseTensor) accumulate(mode, lo, hi int, f1, f2, out []float64, r int) {
	if lo >= hi {
		return
	}
	o1, o2 := otherModes(mode)
	d1, d2 := t.shape[1], t.shape[2]

	var ix [3]int
	ix[0], ix[1], ix[2] = lo/(d1*d2), (lo/d2)%d1, lo%d2

	for p := lo; p < hi; p++ {
		v := t.data[p]
		ar, br, cr := ix[mode]*r, ix[o1]*r, ix[o2]*r
		row := out[ar : ar+r]
		x, y := f1[br:br+r], f2[cr:cr+r]
		for q := range row {
			row[q] += v * x[q] * y[q]
		}

		ix[2]++
		if ix[2] == d2 {
			ix[2] = 0
			ix[1]++
			if ix[1] == d1 {
				ix[1] = 0
				ix[0]++
			}
		}
	}
}

// targetCount converts a density fraction into a clamped entry count.
func targetCount(n int, frac float64) int {
	k := int(math.Round(frac * float64(n)))
	return max(0, min(k, n))
}

// samplePositions returns k distinct positions from [0, n) in ascending order.
func samplePositions(rng *rand.Rand, n, k int) []int {
	switch {
	case k <= 0:
		return nil
	case k >= n:
		out := make([]int, n)
		for p := range out {
			out[p] = p
		}
		return out
	case 2*k > n:
		out := make([]int, 0, k)
		need := k
		for p := 0; p < n && need > 0; p++ {
			if rng.IntN(n-p) < need {
				out = append(out, p)
				need--
			}
		}
		return out
	}

	chosen := make(map[int]struct{}, k)
	for j := n - k; j < n; j++ {
		p := rng.IntN(j + 1)
		if _, dup := chosen[p]; dup {
			p = j
		}
		chosen[p] = struct{}{}
	}
	out := make([]int, 0, k)
	for p := range chosen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
