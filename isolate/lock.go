package isolate

import (
	"sync"
	"sync/atomic"
)

// ExecutorLock guards one environment's execution right. It is a plain
// mutex plus an explicit record of the holding goroutine, so callers can
// distinguish "I already hold this" from "unheld" before attempting an
// acquisition that would self-deadlock.
type ExecutorLock struct {
	mu     sync.Mutex
	holder atomic.Uint64 // goroutine id of the holder, 0 when unheld
}

// Lock blocks until the execution right is available and takes it. There is
// no timeout at this layer.
func (l *ExecutorLock) Lock() {
	l.mu.Lock()
	l.holder.Store(curGID())
}

// Unlock releases the execution right. Must be called by the holder.
func (l *ExecutorLock) Unlock() {
	l.holder.Store(0)
	l.mu.Unlock()
}

// HeldByCaller reports whether the calling goroutine currently holds the
// execution right.
func (l *ExecutorLock) HeldByCaller() bool {
	gid := l.holder.Load()
	return gid != 0 && gid == curGID()
}
