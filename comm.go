package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements an in-process SPMD "world": N ranks, each a
// goroutine running the same function, coordinating only through
// collective calls. It stands in for an MPI communicator.
//
// EXECUTION MODEL:
//
//   rank 0 ──┐   ┌── Broadcast ──┐   ┌── AllReduceSum ──┐
//   rank 1 ──┼──►│  rendezvous   │──►│   rendezvous     │──► ...
//   rank 2 ──┘   └───────────────┘   └──────────────────┘
//
// Every collective is a round. Each rank deposits its contribution in the
// current round's slot. The last rank to arrive combines the slots, stores
// the result on the round and closes the round's done channel, which
// releases everyone. A fresh round is installed before the release, so a
// fast rank can enter the next collective while a slow one is still
// reading the previous result.
//
// RULES THE CALLER MUST FOLLOW:
//   - every rank calls the same collectives in the same order
//   - only the leader (rank 0) writes user-facing output
//
// A rank that returns an error cancels the group context. Ranks blocked in
// a collective see the cancellation and return ctx.Err(), so one failure
// ends the whole world instead of deadlocking it.
//
// ===========================================================================

// LeaderRank is the rank responsible for console output.
const LeaderRank = 0

// round is one collective rendezvous.
type round struct {
	slots  []any
	result any
	done   chan struct{}
}

func newRound(size int) *round {
	return &round{
		slots: make([]any, size),
		done:  make(chan struct{}),
	}
}

// World is the shared state of one SPMD run.
type World struct {
	size int

	mu      sync.Mutex
	cur     *round
	arrived int
}

// Comm is one rank's handle on a World.
type Comm struct {
	world  *World
	rank   int
	logger *slog.Logger
}

// RunWorld runs fn on size ranks concurrently and waits for all of them.
// The first error returned by any rank is returned; the others are
// released from their collectives with a context error.
func RunWorld(ctx context.Context, size int, fn func(ctx context.Context, c *Comm) error) error {
	if size < 1 {
		return fmt.Errorf("%w: world size must be >= 1, got %d", ErrInvalidConfig, size)
	}

	w := &World{size: size, cur: newRound(size)}
	g, gctx := errgroup.WithContext(ctx)

	for r := 0; r < size; r++ {
		c := &Comm{
			world:  w,
			rank:   r,
			logger: slog.Default().With("rank", r),
		}
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.rank, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// NewLocalComm returns a single-rank communicator for callers that run
// outside RunWorld.
func NewLocalComm() *Comm {
	return &Comm{
		world:  &World{size: 1, cur: newRound(1)},
		rank:   LeaderRank,
		logger: slog.Default().With("rank", LeaderRank),
	}
}

// shardRange splits [0, n) into size contiguous parts and returns the
// part owned by rank. The first n%size parts get one extra element.
func shardRange(n, rank, size int) (lo, hi int) {
	base, rem := n/size, n%size
	lo = rank*base + min(rank, rem)
	hi = lo + base
	if rank < rem {
		hi++
	}
	return lo, hi
}

// Rank returns this process's rank.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the world.
func (c *Comm) Size() int { return c.world.size }

// IsLeader reports whether this rank prints.
func (c *Comm) IsLeader() bool { return c.rank == LeaderRank }

// Logger returns a logger tagged with this rank.
func (c *Comm) Logger() *slog.Logger { return c.logger }

// collective deposits v, waits for every rank and returns the combined
// result. combine runs exactly once per round, on the last rank to arrive.
func (c *Comm) collective(ctx context.Context, v any, combine func(slots []any) any) (any, error) {
	w := c.world

	w.mu.Lock()
	r := w.cur
	r.slots[c.rank] = v
	w.arrived++
	if w.arrived == w.size {
		r.result = combine(r.slots)
		w.cur = newRound(w.size)
		w.arrived = 0
		close(r.done)
	}
	w.mu.Unlock()

	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Barrier blocks until every rank has reached it.
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := c.collective(ctx, nil, func([]any) any { return nil })
	return err
}

// AllReduceSum replaces buf on every rank with the element-wise sum of
// buf across all ranks. All ranks must pass buffers of equal length.
func (c *Comm) AllReduceSum(ctx context.Context, buf []float64) error {
	if c.world.size == 1 {
		return nil
	}

	res, err := c.collective(ctx, buf, func(slots []any) any {
		first := slots[0].([]float64)
		sum := make([]float64, len(first))
		for _, s := range slots {
			part := s.([]float64)
			if len(part) != len(sum) {
				return fmt.Errorf("%w: allreduce length %d vs %d", ErrShapeMismatch, len(part), len(sum))
			}
			for i, v := range part {
				sum[i] += v
			}
		}
		return sum
	})
	if err != nil {
		return err
	}
	if rerr, ok := res.(error); ok {
		return rerr
	}

	copy(buf, res.([]float64))
	return nil
}

// Broadcast returns root's v on every rank. Values are shared, not
// copied; treat broadcast data as read-only.
func Broadcast[T any](ctx context.Context, c *Comm, root int, v T) (T, error) {
	var zero T
	if root < 0 || root >= c.world.size {
		return zero, fmt.Errorf("%w: broadcast root %d outside world of %d", ErrInvalidConfig, root, c.world.size)
	}
	if c.world.size == 1 {
		return v, nil
	}

	res, err := c.collective(ctx, v, func(slots []any) any { return slots[root] })
	if err != nil {
		return zero, err
	}
	out, _ := res.(T)
	return out, nil
}
