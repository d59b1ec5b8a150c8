// Package future provides single-settlement futures for cross-environment
// calls. A future is settled exactly once: resolve, reject, or the bridge's
// orphan fallback. Later settlements are ignored.
package future

import (
	"context"
	"sync"
	"sync/atomic"
)

type outcome[T any] struct {
	value T
	err   error
}

// Resolver is the settling half of a future, handed to whoever produces the
// result.
type Resolver[T any] interface {
	Resolve(T)
	Reject(error)
}

// Future is the consuming half: it blocks until settlement.
type Future[T any] struct {
	ch      chan outcome[T]
	settled atomic.Bool
	once    sync.Once
	mu      sync.Mutex
	cached  atomic.Pointer[outcome[T]]
}

// New creates an unsettled future. The returned value is its own resolver.
func New[T any]() *Future[T] {
	return &Future[T]{ch: make(chan outcome[T], 1)}
}

// Resolve settles the future with a value. No-op if already settled.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.settled.Store(true)
		f.ch <- outcome[T]{value: v}
	})
}

// Reject settles the future with an error. No-op if already settled.
func (f *Future[T]) Reject(err error) {
	f.once.Do(func() {
		f.settled.Store(true)
		f.ch <- outcome[T]{err: err}
	})
}

// Settled reports whether a settlement has happened.
func (f *Future[T]) Settled() bool {
	return f.settled.Load()
}

// Get blocks until the future settles and returns its outcome. Safe to call
// from multiple goroutines; all callers observe the same outcome.
func (f *Future[T]) Get() (T, error) {
	return f.Wait(context.Background())
}

// Wait is Get bounded by a context. A context error does not settle the
// future; a later Wait can still observe the real outcome.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	if res := f.cached.Load(); res != nil {
		return res.value, res.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring the lock
	if res := f.cached.Load(); res != nil {
		return res.value, res.err
	}

	select {
	case r := <-f.ch:
		f.cached.Store(&r)
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
