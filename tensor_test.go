package main

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTensorBasics tests basic tensor creation and access.
func TestTensorBasics(t *testing.T) {
	tensor := NewTensor(2, 3)

	assert.Equal(t, []int{2, 3}, tensor.Shape())
	assert.Equal(t, 2, tensor.Dims())
	assert.Equal(t, 6, tensor.Size())

	tensor.Set(1.5, 0, 0)
	tensor.Set(2.5, 1, 2)

	assert.Equal(t, 1.5, tensor.At(0, 0))
	assert.Equal(t, 2.5, tensor.At(1, 2))
	assert.Equal(t, 2.5, tensor.Data()[5], "row-major layout")
}

func TestTensorShapeIsCopied(t *testing.T) {
	shape := []int{2, 2}
	tensor := NewTensor(shape...)
	shape[0] = 99

	got := tensor.Shape()
	got[1] = 42
	assert.Equal(t, []int{2, 2}, tensor.Shape())
}

func TestTensorInvalidShapePanics(t *testing.T) {
	assert.Panics(t, func() { NewTensor() })
	assert.Panics(t, func() { NewTensor(3, 0) })
	assert.Panics(t, func() { NewTensor(-1) })
}

func TestTensorOutOfBoundsPanics(t *testing.T) {
	tensor := NewTensor(2, 2)
	assert.Panics(t, func() { tensor.At(2, 0) })
	assert.Panics(t, func() { tensor.At(0) })
	assert.Panics(t, func() { tensor.Set(1, 0, -1) })
}

func TestTensorClone(t *testing.T) {
	a := NewTensor(2, 2)
	a.Set(3, 1, 1)

	b := a.Clone()
	b.Set(7, 1, 1)

	assert.Equal(t, 3.0, a.At(1, 1))
	assert.Equal(t, 7.0, b.At(1, 1))
}

func TestNewTensorUniformRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	tests := []struct {
		name   string
		lo, hi float64
	}{
		{"factors", 0, 1},
		{"tensor values", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor := NewTensorUniform(rng, tt.lo, tt.hi, 50, 8)
			require.Equal(t, 400, tensor.Size())
			for _, v := range tensor.Data() {
				assert.GreaterOrEqual(t, v, tt.lo)
				assert.Less(t, v, tt.hi)
			}
		})
	}
}
