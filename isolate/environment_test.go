package isolate

import (
	"errors"
	"testing"
	"time"
)

type runFunc func(*Environment)

func (f runFunc) Run(env *Environment) { f(env) }

type discardableTask struct {
	run     func(*Environment)
	discard func()
}

func (t *discardableTask) Run(env *Environment) { t.run(env) }
func (t *discardableTask) Discard()             { t.discard() }

func newTestEnv(t *testing.T) *Environment {
	t.Helper()
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()
	t.Cleanup(env.Dispose)
	return env
}

func TestWorkerRunsPostedItemsInOrder(t *testing.T) {
	env := newTestEnv(t)

	got := make(chan string, 3)
	for _, label := range []string{"a", "b", "c"} {
		label := label
		env.Post(runFunc(func(*Environment) { got <- label }), PostOpts{})
	}

	for _, want := range []string{"a", "b", "c"} {
		select {
		case label := <-got:
			if label != want {
				t.Fatalf("ran %q, want %q", label, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestWorkerHoldsExecutionRight(t *testing.T) {
	env := newTestEnv(t)

	entered := make(chan bool, 1)
	env.Post(runFunc(func(e *Environment) {
		entered <- e.EnteredByCaller() && e.Lock().HeldByCaller()
	}), PostOpts{})

	select {
	case ok := <-entered:
		if !ok {
			t.Fatal("worker ran item without the execution right")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	if env.EnteredByCaller() {
		t.Fatal("test goroutine reported as inside the environment")
	}
}

func TestEnterIsReentrant(t *testing.T) {
	env := newTestEnv(t)

	var inner bool
	err := env.Enter(func(e *Environment) error {
		if !e.EnteredByCaller() {
			t.Fatal("not entered inside Enter")
		}
		return e.Enter(func(e *Environment) error {
			inner = e.EnteredByCaller()
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if !inner {
		t.Fatal("nested Enter did not run inline")
	}
	if env.EnteredByCaller() {
		t.Fatal("entered marker leaked past Enter")
	}
}

func TestDrainDeferredRunsNestedWork(t *testing.T) {
	env := newTestEnv(t)

	var order []string
	env.Defer(func() {
		order = append(order, "first")
		env.Defer(func() { order = append(order, "nested") })
	})
	env.Defer(func() { order = append(order, "second") })

	err := env.Enter(func(e *Environment) error {
		e.DrainDeferred()
		return nil
	})
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	want := []string{"first", "second", "nested"}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestPostAfterDisposeDiscards(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()
	env.Dispose()

	discarded := make(chan struct{}, 1)
	env.Post(&discardableTask{
		run:     func(*Environment) { t.Error("discarded item ran") },
		discard: func() { discarded <- struct{}{} },
	}, PostOpts{})

	select {
	case <-discarded:
	default:
		t.Fatal("Discard was not invoked")
	}
}

func TestPostAfterDisposeRunEvenIfDisposed(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()
	env.Dispose()

	ran := make(chan struct{}, 1)
	env.Post(runFunc(func(*Environment) { ran <- struct{}{} }), PostOpts{RunEvenIfDisposed: true})

	select {
	case <-ran:
	default:
		t.Fatal("item flagged RunEvenIfDisposed did not run")
	}
}

func TestDisposeDiscardsQueuedItems(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()

	blockStarted := make(chan struct{})
	release := make(chan struct{})
	env.Post(runFunc(func(*Environment) {
		close(blockStarted)
		<-release
	}), PostOpts{})
	<-blockStarted

	discarded := make(chan struct{}, 1)
	env.Post(&discardableTask{
		run:     func(*Environment) { t.Error("queued item ran after dispose") },
		discard: func() { discarded <- struct{}{} },
	}, PostOpts{})

	done := make(chan struct{})
	go func() {
		env.Dispose()
		close(done)
	}()
	// The disposed flag must be up before the worker resumes, or it would
	// legitimately execute the queued entry first.
	for !env.Disposed() {
		time.Sleep(time.Millisecond)
	}
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispose did not return")
	}

	select {
	case <-discarded:
	case <-time.After(2 * time.Second):
		t.Fatal("queued item was not discarded on dispose")
	}
}

func TestHolderResolvesUntilDisposed(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()
	h := env.Holder()

	resolved, err := h.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != env {
		t.Fatal("Resolve returned a different environment")
	}
	if h.Disposed() {
		t.Fatal("live environment reported disposed")
	}

	env.Dispose()

	if _, err := h.Resolve(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Resolve after dispose = %v, want ErrDisposed", err)
	}
	if !h.Disposed() {
		t.Fatal("disposed environment reported live")
	}
}

func TestNilHolderDiscards(t *testing.T) {
	var h *Holder

	if _, err := h.Resolve(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Resolve = %v, want ErrDisposed", err)
	}

	discarded := false
	h.Post(&discardableTask{
		run:     func(*Environment) { t.Error("item ran against nil holder") },
		discard: func() { discarded = true },
	}, PostOpts{})
	if !discarded {
		t.Fatal("Discard was not invoked for nil holder")
	}
}

func TestAcquireFailsAfterDispose(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()

	release, err := env.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !env.Lock().HeldByCaller() {
		t.Fatal("Acquire did not take the lock")
	}
	release()

	env.Dispose()
	if _, err := env.Acquire(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Acquire after dispose = %v, want ErrDisposed", err)
	}
	if err := env.Enter(func(*Environment) error { return nil }); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Enter after dispose = %v, want ErrDisposed", err)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()
	env.Dispose()
	env.Dispose()
	if !env.Disposed() {
		t.Fatal("environment not disposed")
	}
}

func TestRunScriptUnderEnter(t *testing.T) {
	env := newTestEnv(t)

	var got int64
	err := env.Enter(func(e *Environment) error {
		v, err := e.RunScript("6 * 7")
		if err != nil {
			return err
		}
		got = v.ToInteger()
		return nil
	})
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if got != 42 {
		t.Fatalf("script result = %d, want 42", got)
	}
}
