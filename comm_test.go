package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardRangeCoversEverything(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 1000} {
		for _, size := range []int{1, 2, 3, 8} {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				next := 0
				for r := 0; r < size; r++ {
					lo, hi := shardRange(n, r, size)
					assert.Equal(t, next, lo, "shards must be contiguous")
					assert.LessOrEqual(t, hi-lo, n/size+1)
					assert.GreaterOrEqual(t, hi-lo, n/size)
					next = hi
				}
				assert.Equal(t, n, next)
			})
		}
	}
}

func TestRunWorldRanks(t *testing.T) {
	var leaders, total atomic.Int32
	err := RunWorld(context.Background(), 4, func(ctx context.Context, c *Comm) error {
		total.Add(1)
		if c.IsLeader() {
			leaders.Add(1)
		}
		assert.Equal(t, 4, c.Size())
		return c.Barrier(ctx)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total.Load())
	assert.EqualValues(t, 1, leaders.Load())
}

func TestRunWorldInvalidSize(t *testing.T) {
	err := RunWorld(context.Background(), 0, func(context.Context, *Comm) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAllReduceSum(t *testing.T) {
	const ranks = 3
	results := make([][]float64, ranks)

	err := RunWorld(context.Background(), ranks, func(ctx context.Context, c *Comm) error {
		// Several rounds back to back exercise round turnover.
		buf := []float64{float64(c.Rank()), 1, 10}
		for i := 0; i < 5; i++ {
			if err := c.AllReduceSum(ctx, buf); err != nil {
				return err
			}
		}
		results[c.Rank()] = buf
		return nil
	})
	require.NoError(t, err)

	// Each round multiplies by the world size after the first.
	want := []float64{3 * 81, 3 * 81, 30 * 81}
	for r, got := range results {
		assert.Equalf(t, want, got, "rank %d", r)
	}
}

func TestAllReduceSumLengthMismatch(t *testing.T) {
	err := RunWorld(context.Background(), 2, func(ctx context.Context, c *Comm) error {
		return c.AllReduceSum(ctx, make([]float64, 2+c.Rank()))
	})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBroadcast(t *testing.T) {
	const ranks = 4
	got := make([]*Tensor, ranks)

	err := RunWorld(context.Background(), ranks, func(ctx context.Context, c *Comm) error {
		var v *Tensor
		if c.IsLeader() {
			v = NewTensor(2, 2)
			v.Set(5, 1, 1)
		}
		out, err := Broadcast(ctx, c, LeaderRank, v)
		got[c.Rank()] = out
		return err
	})
	require.NoError(t, err)

	for r, v := range got {
		require.NotNilf(t, v, "rank %d", r)
		assert.Equal(t, 5.0, v.At(1, 1))
	}
}

func TestBroadcastInvalidRoot(t *testing.T) {
	_, err := Broadcast(context.Background(), NewLocalComm(), 1, 42)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLocalCommCollectives(t *testing.T) {
	ctx := context.Background()
	c := NewLocalComm()

	assert.True(t, c.IsLeader())
	assert.Equal(t, 1, c.Size())
	require.NoError(t, c.Barrier(ctx))

	buf := []float64{1, 2}
	require.NoError(t, c.AllReduceSum(ctx, buf))
	assert.Equal(t, []float64{1, 2}, buf)

	v, err := Broadcast(ctx, c, LeaderRank, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

// A failing rank must release ranks blocked in a collective.
func TestRunWorldFailureReleasesCollectives(t *testing.T) {
	boom := errors.New("boom")

	err := RunWorld(context.Background(), 3, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 1 {
			return boom
		}
		return c.Barrier(ctx)
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rank 1")
}

func TestRunWorldParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunWorld(ctx, 2, func(ctx context.Context, c *Comm) error {
		if c.IsLeader() {
			return c.Barrier(ctx)
		}
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}
