package isobridge

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/IsoBridge/future"
	"github.com/GriffinCanCode/IsoBridge/isolate"
	"github.com/GriffinCanCode/IsoBridge/values"
)

// RunAsync invokes task across environments: Phase1 synchronously in the
// caller, Phase2 queued against the target, Phase3 back in the caller. The
// caller must be entered (its execution right held). A Phase1 error is
// returned directly and nothing is queued. Otherwise the returned future
// settles exactly once: resolve, reject, or the orphan fallback if the
// target is disposed before the queued item runs.
func RunAsync(caller *isolate.Environment, target *isolate.Holder, task Task) (*future.Future[any], error) {
	fut := future.New[any]()
	info := newCalleeInfo(caller, fut, "async call")

	start := time.Now()
	err := task.Phase1(caller)
	caller.Scheduler().Metrics().ObservePhase("phase1", start)
	if err != nil {
		info.close()
		return nil, err
	}

	target.Post(&phase2Runner{task: task, info: info}, isolate.PostOpts{})
	return fut, nil
}

// RunIgnored invokes task with no result channel: Phase1 synchronously in
// the caller, Phase2 queued against the target, Phase3 never. Phase2
// failures are swallowed; there is no future and no waiting caller. A drop
// caused by target disposal is equally silent.
func RunIgnored(caller *isolate.Environment, target *isolate.Holder, task Task) error {
	if err := task.Phase1(caller); err != nil {
		return err
	}
	target.Post(&ignoredRunner{task: task}, isolate.PostOpts{})
	return nil
}

// phase2Runner is the queued item carrying Task+calleeInfo into the target
// environment. The run flag and Discard are mutually exclusive: a queue
// entry is either popped by the worker and run, or drained at disposal and
// discarded, never both.
type phase2Runner struct {
	task   Task
	info   *calleeInfo
	didRun bool
}

func (r *phase2Runner) Run(target *isolate.Environment) {
	r.didRun = true
	m := target.Scheduler().Metrics()

	start := time.Now()
	err := runPhase2(r.task, target)
	m.ObservePhase("phase2", start)

	// Settlement items run even when the caller is gone; dropping one would
	// leave the future unsettled forever.
	if err == nil {
		target.TaskEpilogue()
		m.TasksExecuted.WithLabelValues("async", "ok").Inc()
		r.info.caller.Post(&phase3Success{task: r.task, info: r.info}, isolate.PostOpts{RunEvenIfDisposed: true})
		return
	}

	m.TasksExecuted.WithLabelValues("async", "error").Inc()
	errCopy := values.ExternalizeError(withThrowSite(err, target.Scheduler().StackDepth()))
	r.info.caller.Post(&phase3Failure{info: r.info, err: errCopy}, isolate.PostOpts{RunEvenIfDisposed: true})
}

// Discard fires when the queued item is dropped without running: the
// target was disposed first. Settlement still happens, through the caller.
func (r *phase2Runner) Discard() {
	if r.didRun {
		return
	}
	r.info.caller.Post(&phase3Orphan{info: r.info}, isolate.PostOpts{RunEvenIfDisposed: true})
}

// phase3Success re-enters the caller and resolves the future with Phase3's
// result. A Phase3 failure keeps the invocation-site stack and rejects
// instead.
type phase3Success struct {
	task Task
	info *calleeInfo
}

func (p *phase3Success) Run(caller *isolate.Environment) {
	m := caller.Scheduler().Metrics()
	defer p.info.close()

	p.info.token.With(func() {
		start := time.Now()
		v, err := runPhase3(p.task, caller)
		m.ObservePhase("phase3", start)

		if err != nil {
			m.FuturesSettled.WithLabelValues("rejected").Inc()
			p.info.resolver.Reject(values.Attach(err, p.info.stack))
		} else {
			m.FuturesSettled.WithLabelValues("resolved").Inc()
			p.info.resolver.Resolve(v)
		}
		caller.DrainDeferred()
	})
}

// phase3Failure re-enters the caller, materializes the externalized Phase2
// error, chains the invocation-site stack below the throw site, and
// rejects.
type phase3Failure struct {
	info *calleeInfo
	err  *values.ExternalCopy
}

func (p *phase3Failure) Run(caller *isolate.Environment) {
	m := caller.Scheduler().Metrics()
	defer p.info.close()

	p.info.token.With(func() {
		err := values.Chain(p.err.MaterializeError(), p.info.stack)
		m.FuturesSettled.WithLabelValues("rejected").Inc()
		p.info.resolver.Reject(err)
		caller.DrainDeferred()
	})
}

// phase3Orphan is the fallback settlement for a task discarded before it
// ever ran. It rejects with the fixed disposed error, carrying the stack
// captured at invocation time.
type phase3Orphan struct {
	info *calleeInfo
}

func (p *phase3Orphan) Run(caller *isolate.Environment) {
	m := caller.Scheduler().Metrics()
	defer p.info.close()

	p.info.token.With(func() {
		m.TasksOrphaned.Inc()
		m.FuturesSettled.WithLabelValues("orphaned").Inc()
		p.info.resolver.Reject(values.Attach(isolate.ErrDisposed, p.info.stack))
		caller.DrainDeferred()
	})
}

// ignoredRunner is the fire-and-ignore queued item. It owns only the Task.
type ignoredRunner struct {
	task Task
}

func (r *ignoredRunner) Run(target *isolate.Environment) {
	m := target.Scheduler().Metrics()

	if err := runPhase2(r.task, target); err != nil {
		m.TasksExecuted.WithLabelValues("ignored", "error").Inc()
		// Swallowed by contract; debug visibility only.
		target.Scheduler().Logger().Debug("ignored task failed", zap.Error(err))
		return
	}
	target.TaskEpilogue()
	m.TasksExecuted.WithLabelValues("ignored", "ok").Inc()
}

// runPhase2 executes Phase2 in a failure-catching scope: returned errors
// and panics both surface as errors.
func runPhase2(task Task, target *isolate.Environment) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in task execution: %v", rec)
		}
	}()
	return task.Phase2(target)
}

// runPhase3 executes Phase3 in the same failure-catching scope, so a panic
// during conversion still settles the future.
func runPhase3(task Task, caller *isolate.Environment) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in task conversion: %v", rec)
		}
	}()
	return task.Phase3(caller)
}

// withThrowSite ensures an error carries a throw-site stack before it is
// externalized. Errors that already have one are left alone.
func withThrowSite(err error, depth int) error {
	var re *values.RemoteError
	if errors.As(err, &re) && len(re.Stack) > 0 {
		return err
	}
	return values.Attach(err, values.Capture(2, depth))
}
