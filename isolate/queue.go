package isolate

import (
	"sync"

	"github.com/GriffinCanCode/IsoBridge/internal/shared/id"
)

// Runnable is a queued work item. Run is invoked with the target
// environment's execution right held, on that environment's worker.
type Runnable interface {
	Run(env *Environment)
}

// Discardable is implemented by work items that define an orphan fallback.
// Discard is invoked when the item is dropped without ever running.
type Discardable interface {
	Discard()
}

// PostOpts control how a work item is queued.
type PostOpts struct {
	// Urgent items jump to the front of the queue.
	Urgent bool
	// RunEvenIfDisposed items still execute when the target environment is
	// gone, inline on the posting goroutine. Used for settlement fallbacks
	// that must not be silently dropped.
	RunEvenIfDisposed bool
}

type queueEntry struct {
	id   id.TaskID
	item Runnable
	opts PostOpts
}

// taskQueue is a per-environment FIFO inbox. Pushing never blocks; the
// backing slice grows as needed.
type taskQueue struct {
	mu     sync.Mutex
	items  []queueEntry
	closed bool
	signal chan struct{}
}

func newTaskQueue(capacity int) *taskQueue {
	if capacity <= 0 {
		capacity = 128
	}
	return &taskQueue{
		items:  make([]queueEntry, 0, capacity),
		signal: make(chan struct{}, 1),
	}
}

// push appends (or prepends, for urgent items) an entry and wakes the
// worker. Returns false once the queue is closed.
func (q *taskQueue) push(e queueEntry) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if e.opts.Urgent {
		q.items = append([]queueEntry{e}, q.items...)
	} else {
		q.items = append(q.items, e)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// pop removes the head entry. ok is false when the queue is empty.
func (q *taskQueue) pop() (e queueEntry, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return queueEntry{}, false
	}
	e = q.items[0]
	q.items = q.items[1:]
	return e, true
}

// close marks the queue closed and hands back whatever was still pending.
// Ownership of the returned entries moves to the caller.
func (q *taskQueue) close() []queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	pending := q.items
	q.items = nil
	return pending
}

// postKind is the metrics label for a posted item.
func postKind(opts PostOpts) string {
	if opts.Urgent {
		return "urgent"
	}
	return "normal"
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
