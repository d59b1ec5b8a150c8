package isolate

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/IsoBridge/internal/logging"
	"github.com/GriffinCanCode/IsoBridge/internal/shared/id"
)

// Environment is an isolated unit of execution: its own goja heap, its own
// FIFO inbox, and a single exclusive execution right. Environments are
// created by a Scheduler and torn down with Dispose; queued work may still
// reference an environment that is being disposed, which is why all external
// access goes through a Holder.
type Environment struct {
	id    id.EnvID
	vm    *goja.Runtime
	lock  ExecutorLock
	queue *taskQueue

	sched  *Scheduler
	holder *Holder
	log    *logging.Logger

	deferredMu sync.Mutex
	deferred   []func()

	enteredBy atomic.Uint64 // goroutine currently executing inside, 0 if none
	disposed  atomic.Bool
	done      chan struct{} // closed by Dispose, stops the worker
	drained   chan struct{} // closed by the worker after the disposal drain
}

func newEnvironment(sched *Scheduler) *Environment {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)

	e := &Environment{
		id:      id.NewEnvID(),
		vm:      vm,
		queue:   newTaskQueue(sched.cfg.Queue.Capacity),
		sched:   sched,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	e.log = sched.log.WithEnv(e.id)
	e.holder = &Holder{env: e}
	return e
}

// ID returns the environment's identifier.
func (e *Environment) ID() id.EnvID {
	return e.id
}

// Holder returns the shared weak handle to this environment. The handle
// stays valid after disposal.
func (e *Environment) Holder() *Holder {
	return e.holder
}

// Scheduler returns the scheduler that owns this environment.
func (e *Environment) Scheduler() *Scheduler {
	return e.sched
}

// Runtime exposes the underlying goja VM. Callers must hold the execution
// right.
func (e *Environment) Runtime() *goja.Runtime {
	return e.vm
}

// RunScript evaluates src inside the environment's heap. Callers must hold
// the execution right.
func (e *Environment) RunScript(src string) (goja.Value, error) {
	return e.vm.RunString(src)
}

// EnteredByCaller reports whether the calling goroutine is currently
// executing inside this environment.
func (e *Environment) EnteredByCaller() bool {
	gid := e.enteredBy.Load()
	return gid != 0 && gid == curGID()
}

// Lock exposes the environment's executor lock for scoped acquisition.
func (e *Environment) Lock() *ExecutorLock {
	return &e.lock
}

// Acquire takes the execution right without marking the goroutine as
// entered, and returns the release function. Fails once disposed.
func (e *Environment) Acquire() (release func(), err error) {
	if e.disposed.Load() {
		return nil, ErrDisposed
	}
	e.lock.Lock()
	return e.lock.Unlock, nil
}

// Enter runs fn with the execution right held and the goroutine marked as
// inside the environment. Reentrant calls from a goroutine that already
// holds the right run fn inline.
func (e *Environment) Enter(fn func(*Environment) error) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	if e.lock.HeldByCaller() {
		return e.enterLocked(fn)
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.enterLocked(fn)
}

// enterLocked marks the calling goroutine entered for fn's duration. The
// previous marker is restored so nested enters unwind correctly.
func (e *Environment) enterLocked(fn func(*Environment) error) error {
	prev := e.enteredBy.Swap(curGID())
	defer e.enteredBy.Store(prev)
	return fn(e)
}

// Defer schedules fn to run the next time this environment drains deferred
// work. Roughly a microtask: it runs under the execution right, after the
// current task completes.
func (e *Environment) Defer(fn func()) {
	e.deferredMu.Lock()
	e.deferred = append(e.deferred, fn)
	e.deferredMu.Unlock()
}

// DrainDeferred runs pending deferred work, including work scheduled by the
// drained jobs themselves. Callers must hold the execution right.
func (e *Environment) DrainDeferred() {
	for {
		e.deferredMu.Lock()
		if len(e.deferred) == 0 {
			e.deferredMu.Unlock()
			return
		}
		jobs := e.deferred
		e.deferred = nil
		e.deferredMu.Unlock()

		for _, fn := range jobs {
			fn()
		}
	}
}

// TaskEpilogue runs the environment's post-task bookkeeping. It is invoked
// once after a successful Phase2, and skipped for reentrant acquisitions;
// the outer holder runs it instead.
func (e *Environment) TaskEpilogue() {
	e.DrainDeferred()
}

// Disposed reports whether Dispose has been called.
func (e *Environment) Disposed() bool {
	return e.disposed.Load()
}

// QueueLen returns the number of items currently queued.
func (e *Environment) QueueLen() int {
	return e.queue.len()
}

// Post queues a work item against this environment. Never blocks. Once the
// environment is disposed the PostOpts drop rules apply.
func (e *Environment) Post(item Runnable, opts PostOpts) {
	entry := queueEntry{id: id.NewTaskID(), item: item, opts: opts}

	if !e.disposed.Load() && e.queue.push(entry) {
		e.sched.metrics.TasksPosted.WithLabelValues(postKind(opts)).Inc()
		e.sched.metrics.QueueDepth.Inc()
		return
	}

	e.finishDroppedEntry(entry)
}

// finishDroppedEntry applies the drop rules for an entry whose environment
// is gone: run inline if the item insists, otherwise fire the orphan
// fallback and count the drop.
func (e *Environment) finishDroppedEntry(entry queueEntry) {
	if entry.opts.RunEvenIfDisposed {
		e.runEntry(entry)
		return
	}
	e.sched.metrics.TasksDropped.Inc()
	if d, ok := entry.item.(Discardable); ok {
		d.Discard()
	}
}

// runEntry executes one queued item under the execution right.
func (e *Environment) runEntry(entry queueEntry) {
	if e.lock.HeldByCaller() {
		e.runEntryLocked(entry)
		return
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	e.runEntryLocked(entry)
}

func (e *Environment) runEntryLocked(entry queueEntry) {
	prev := e.enteredBy.Swap(curGID())
	defer e.enteredBy.Store(prev)
	entry.item.Run(e)
}

// Dispose tears the environment down: the in-flight script is interrupted,
// the worker drains the inbox applying the drop rules, and all holders
// start reporting ErrDisposed. Idempotent. Safe to call while tasks are
// still queued; that is the whole point.
func (e *Environment) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}

	e.log.Info("disposing environment", zap.Int("pending", e.queue.len()))
	e.vm.Interrupt(ErrDisposed.Error())
	close(e.done)

	// Calling Dispose from inside the environment's own worker must not
	// wait for the drain the worker itself performs on return.
	if !e.EnteredByCaller() {
		<-e.drained
	}

	e.sched.metrics.EnvsDisposed.Inc()
	e.sched.metrics.EnvsActive.Dec()
}
