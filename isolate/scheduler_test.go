package isolate

import (
	"testing"
	"time"
)

func TestMarkPrimary(t *testing.T) {
	sched := NewScheduler(Options{})

	if sched.IsPrimary() {
		t.Fatal("unmarked scheduler reported a primary")
	}

	sched.MarkPrimary()
	if !sched.IsPrimary() {
		t.Fatal("marking goroutine not recognized as primary")
	}

	other := make(chan bool, 1)
	go func() { other <- sched.IsPrimary() }()
	if <-other {
		t.Fatal("unrelated goroutine reported as primary")
	}
}

func TestCurrentAsyncTaskTracksWorker(t *testing.T) {
	sched := NewScheduler(Options{})
	env := sched.NewEnvironment()
	defer env.Dispose()

	type probe struct {
		env *Environment
		ok  bool
	}
	got := make(chan probe, 1)
	env.Post(runFunc(func(*Environment) {
		e, ok := sched.CurrentAsyncTask()
		got <- probe{e, ok}
	}), PostOpts{})

	select {
	case p := <-got:
		if !p.ok || p.env != env {
			t.Fatalf("CurrentAsyncTask inside worker = (%v, %v)", p.env, p.ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	if _, ok := sched.CurrentAsyncTask(); ok {
		t.Fatal("test goroutine reported as inside an async task")
	}
}

func TestShutdownDisposesAll(t *testing.T) {
	sched := NewScheduler(Options{})
	a := sched.NewEnvironment()
	b := sched.NewEnvironment()

	sched.Shutdown()

	if !a.Disposed() || !b.Disposed() {
		t.Fatal("Shutdown left an environment live")
	}
}

func TestSchedulerOptionsOverrideDefaults(t *testing.T) {
	sched := NewScheduler(Options{QueueCapacity: 7, StackDepth: 3})
	if got := sched.StackDepth(); got != 3 {
		t.Fatalf("StackDepth = %d, want 3", got)
	}
	if sched.cfg.Queue.Capacity != 7 {
		t.Fatalf("queue capacity = %d, want 7", sched.cfg.Queue.Capacity)
	}
}
