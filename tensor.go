package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// RECOMMENDED READING:
//
// Tensor decompositions:
// - "Tensor Decompositions and Applications" by Kolda & Bader (2009)
//   Section 3: CP decomposition, MTTKRP and the Khatri-Rao product
//
// Sparse tensor kernels:
// - "SPLATT: Efficient and Parallel Sparse Tensor-Matrix Multiplication"
//   by Smith, Ravindran, Sidiropoulos, Karypis (2015)
//
// Distributed tensor contraction:
// - "A massively parallel tensor contraction framework for coupled-cluster
//   computations" by Solomonik, Matthews, Hammond, Stanton, Demmel (2014)

var (
	// ErrShapeMismatch indicates incompatible tensor shapes for an operation.
	ErrShapeMismatch = errors.New("tensor: shape mismatch")

	// ErrInvalidMode indicates a contraction mode outside [0, 3).
	ErrInvalidMode = errors.New("tensor: invalid mode")
)

// Tensor represents a dense multi-dimensional array of float64 values.
// It stores data in row-major (C-contiguous) order.
//
// Tensor is not safe for concurrent mutation. Concurrent reads are fine,
// which is what the contraction kernels rely on.
type Tensor struct {
	data  []float64
	shape []int
}

// NewTensor creates a tensor with the given shape, initialized to zero.
// Panics if shape is invalid (empty or contains non-positive dimensions).
func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("tensor: shape cannot be empty")
	}

	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("tensor: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}

	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		data:  make([]float64, size),
		shape: shapeCopy,
	}
}

// NewTensorUniform creates a tensor with values drawn uniformly from [lo, hi).
func NewTensorUniform(rng *rand.Rand, lo, hi float64, shape ...int) *Tensor {
	t := NewTensor(shape...)
	span := hi - lo
	for i := range t.data {
		t.data[i] = lo + span*rng.Float64()
	}
	return t
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Dims returns the number of dimensions of the tensor.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Size returns the total number of elements in the tensor.
func (t *Tensor) Size() int {
	return len(t.data)
}

// Data exposes the backing slice. Callers must not resize it.
func (t *Tensor) Data() []float64 {
	return t.data
}

// At returns the element at the given indices.
// Panics if indices are invalid - this is a programmer error.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are invalid.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

// flatIndex converts multi-dimensional indices to a flat index.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(t.shape), len(indices)))
	}

	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index[%d]=%d out of bounds [0,%d)", i, indices[i], t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}

	return idx
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := NewTensor(t.shape...)
	copy(clone.data, t.data)
	return clone
}

// String returns a string representation of the tensor for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, size=%d)", t.shape, len(t.data))
}
