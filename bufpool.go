package main

import (
	"sync"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Every MTTKRP call needs one (n x R) accumulator per worker plus one per
// rank for the reduction. A sweep runs 3·num_iter contractions per size,
// all with the same n and R, so the buffers are recycled through sync.Pool
// instead of being handed to the GC after each call.
//
// Pools are keyed by length. Within one size every buffer has the same
// length, so reuse is close to total after the first iteration. When the
// sweep moves to the next size the old pool simply drains.
//
// SYNC.POOL CHARACTERISTICS:
//
// 1. **Thread-safe**: workers Get and Put concurrently
// 2. **No guarantees**: objects may vanish at any GC
// 3. **Pointer values**: the pool stores *[]float64 so Put does not
//    allocate a slice header on every call
//
// ===========================================================================

// GlobalBufferPool is the accumulator pool used by the contraction engine.
var GlobalBufferPool = NewBufferPool()

// BufferPool recycles float64 buffers, one sync.Pool per length.
type BufferPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

// NewBufferPool creates an empty buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pools: make(map[int]*sync.Pool),
	}
}

// poolFor returns the sync.Pool for buffers of length n, creating it on
// first use.
func (bp *BufferPool) poolFor(n int) *sync.Pool {
	bp.mu.RLock()
	pool, ok := bp.pools[n]
	bp.mu.RUnlock()
	if ok {
		return pool
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	// Another goroutine may have created it between the locks.
	if pool, ok := bp.pools[n]; ok {
		return pool
	}

	pool = &sync.Pool{
		New: func() any {
			buf := make([]float64, n)
			return &buf
		},
	}
	bp.pools[n] = pool
	return pool
}

// Get returns a buffer of length n. Its contents are unspecified.
func (bp *BufferPool) Get(n int) []float64 {
	buf := bp.poolFor(n).Get().(*[]float64)
	return (*buf)[:n]
}

// GetZeroed returns a zero-filled buffer of length n.
func (bp *BufferPool) GetZeroed(n int) []float64 {
	buf := bp.Get(n)
	clear(buf)
	return buf
}

// Put returns buf to the pool. The caller must not touch buf afterwards.
func (bp *BufferPool) Put(buf []float64) {
	if len(buf) == 0 {
		return
	}
	bp.poolFor(len(buf)).Put(&buf)
}

// WithBuffer runs fn with a zeroed pooled buffer and returns it to the
// pool afterwards, even if fn panics.
func (bp *BufferPool) WithBuffer(n int, fn func([]float64) error) error {
	buf := bp.GetZeroed(n)
	defer bp.Put(buf)
	return fn(buf)
}
