// Package pool implements the bounded object pool the pipeline uses to
// carry fixed-shape buffers between stages without per-packet allocation
// (spec §3 "Object pool", §4.2).
//
// It generalizes the teacher's sync.Pool-of-fixed-size-buffers idiom
// (paqet/internal/pkg/buffer.TPool/UPool) with a constructor-supplied reset
// function and an outstanding-handle counter, because a plain sync.Pool
// can neither guarantee the reset-on-release contract nor report growth
// events — both required by §4.2 and the testable invariants in §8.
package pool

import (
	"sdrhost/internal/flog"
	"sdrhost/internal/metrics"
	"sync"
	"sync/atomic"
)

// Pool is a bounded free-list of uniformly shaped T. It never blocks on
// Acquire: if the free list is empty it allocates a new T and logs a
// growth event, and it never shrinks while any handle is live.
type Pool[T any] struct {
	name    string
	newFn   func() *T
	resetFn func(*T)

	mu   sync.Mutex
	free []*T

	outstanding atomic.Int64
	grown       atomic.Int64
}

// New creates a Pool whose New function constructs a T and whose reset
// function restores a released T to its pool-default state.
func New[T any](name string, newFn func() *T, resetFn func(*T)) *Pool[T] {
	return &Pool[T]{name: name, newFn: newFn, resetFn: resetFn}
}

// Handle is an owned, borrowed T. Release must be called exactly once on
// every code path, including panics (use defer), to satisfy the "release
// is guaranteed on every exit path" invariant in §3.
type Handle[T any] struct {
	p     *Pool[T]
	Value *T
}

// Acquire returns an owned handle, growing the pool if none are free.
func (p *Pool[T]) Acquire() *Handle[T] {
	p.mu.Lock()
	n := len(p.free)
	var v *T
	if n > 0 {
		v = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if v == nil {
		v = p.newFn()
		grown := p.grown.Add(1)
		flog.Debugf("pool %s: grew to satisfy acquire (growth #%d)", p.name, grown)
		metrics.PoolGrowth.WithLabelValues(p.name).Inc()
	}
	p.outstanding.Add(1)
	return &Handle[T]{p: p, Value: v}
}

// Release resets and returns the handle's value to the free list. Calling
// Release more than once on the same handle is a no-op after the first
// call.
func (h *Handle[T]) Release() {
	if h == nil || h.Value == nil {
		return
	}
	p := h.p
	if p.resetFn != nil {
		p.resetFn(h.Value)
	}
	p.mu.Lock()
	p.free = append(p.free, h.Value)
	p.mu.Unlock()
	p.outstanding.Add(-1)
	h.Value = nil
}

// Outstanding returns the number of handles currently checked out.
func (p *Pool[T]) Outstanding() int64 { return p.outstanding.Load() }

// Grown returns the number of times the pool has allocated a new T beyond
// whatever was already free.
func (p *Pool[T]) Grown() int64 { return p.grown.Load() }
