package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeSequence(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		mult       float64
		want       []int
	}{
		{"doubling", 4, 16, 2, []int{4, 8, 16}},
		{"end not hit exactly", 4, 20, 2, []int{4, 8, 16}},
		{"single", 4, 4, 2, []int{4}},
		{"start after end", 8, 4, 2, nil},
		{"truncating multiplier", 10, 40, 1.5, []int{10, 15, 22, 33}},
		{"tripling", 1, 100, 3, []int{1, 3, 9, 27, 81}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SizeSequence(tt.start, tt.end, tt.mult)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i], got[i-1], "sequence must strictly increase")
			}
		})
	}
}

func TestSizeSequenceErrors(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		mult       float64
		want       error
	}{
		{"unit multiplier", 4, 16, 1, ErrStalledSequence},
		{"shrinking multiplier", 4, 16, 0.5, ErrStalledSequence},
		{"truncation stall", 4, 16, 1.1, ErrStalledSequence},
		{"zero start", 0, 16, 2, ErrInvalidSize},
		{"negative start", -2, 16, 2, ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SizeSequence(tt.start, tt.end, tt.mult)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSummarize(t *testing.T) {
	// Three iterations; variant times per iteration are (1,2,3), (2,2,2), (3,3,6).
	samples := []float64{2, 2, 4}
	totals := [3]float64{6, 7, 11}

	got := Summarize(samples, totals, 3)

	mean := 24.0 / 9.0
	sd := math.Sqrt(((2-mean)*(2-mean)*2 + (4-mean)*(4-mean)) / 3)

	assert.Equal(t, 2.0, got.Min)
	assert.Equal(t, 4.0, got.Max)
	assert.InDelta(t, mean, got.Mean, 1e-12)
	assert.InDelta(t, mean-2*sd, got.Min95, 1e-12)
	assert.InDelta(t, mean+2*sd, got.Max95, 1e-12)
}

// The band is centred on the total mean even if the samples disagree
// with it, as happens when the inputs are not from the same run.
func TestSummarizeBandCentredOnTotalMean(t *testing.T) {
	samples := []float64{1, 3}
	totals := [3]float64{30, 30, 30}

	got := Summarize(samples, totals, 2)

	assert.Equal(t, 15.0, got.Mean)
	assert.InDelta(t, 13.0, got.Min95, 1e-12)
	assert.InDelta(t, 17.0, got.Max95, 1e-12)
	assert.Equal(t, 1.0, got.Min)
	assert.Equal(t, 3.0, got.Max)
}

func TestSummarizeSingleSample(t *testing.T) {
	got := Summarize([]float64{0.5}, [3]float64{0.4, 0.5, 0.6}, 1)
	assert.Equal(t, got.Min, got.Max)
	assert.InDelta(t, 0.5, got.Mean, 1e-12)
	assert.InDelta(t, got.Mean, got.Min95, 1e-12)
	assert.InDelta(t, got.Mean, got.Max95, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, SizeStats{}, Summarize(nil, [3]float64{}, 0))
}
