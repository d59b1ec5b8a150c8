package isobridge

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/IsoBridge/isolate"
	"github.com/GriffinCanCode/IsoBridge/values"
)

// RunSync invokes task synchronously and returns Phase3's result directly;
// no future is ever created in this mode.
//
// If the calling goroutine already holds the target's execution right,
// Phase2 runs inline with no locking and no deadlock check. Otherwise the caller
// must be the host's designated blocking-capable goroutine
// (Scheduler.MarkPrimary); a goroutine inside an asynchronous task is
// refused with ErrDeadlock before any lock attempt. A Phase2 failure is
// externalized so it outlives the lock, then materialized in the caller
// with a freshly captured stack chained on; Phase3 is never reached.
func RunSync(caller *isolate.Environment, target *isolate.Holder, task Task) (any, error) {
	env, err := target.Resolve()
	if err != nil {
		return nil, err
	}

	if err := task.Phase1(caller); err != nil {
		return nil, err
	}

	sched := env.Scheduler()
	m := sched.Metrics()

	if env.EnteredByCaller() {
		// Same-environment shortcut. Errors propagate directly; there is
		// no boundary to externalize across.
		start := time.Now()
		err := runPhase2(task, env)
		m.ObservePhase("phase2", start)
		if err != nil {
			m.TasksExecuted.WithLabelValues("sync", "error").Inc()
			return nil, err
		}
		m.TasksExecuted.WithLabelValues("sync", "ok").Inc()
	} else {
		if !sched.IsPrimary() {
			if from, ok := sched.CurrentAsyncTask(); ok {
				sched.Logger().Debug("synchronous call refused",
					zap.String("from_env", from.ID().String()),
					zap.String("target_env", env.ID().String()))
			}
			return nil, isolate.ErrDeadlock
		}

		// A reentrant acquisition (lock already held via Acquire) skips
		// both the lock and the epilogue; the outer holder runs it.
		reentrant := env.Lock().HeldByCaller()

		// The stash must outlive the lock: materializing and chaining
		// happen back in the caller, after release.
		var stashed *values.ExternalCopy

		start := time.Now()
		enterErr := env.Enter(func(env *isolate.Environment) error {
			if err := runPhase2(task, env); err != nil {
				stashed = values.ExternalizeError(withThrowSite(err, sched.StackDepth()))
				return nil
			}
			if !reentrant {
				env.TaskEpilogue()
			}
			return nil
		})
		m.ObservePhase("phase2", start)
		if enterErr != nil {
			// Disposed between Resolve and acquisition.
			return nil, enterErr
		}

		if stashed != nil {
			m.TasksExecuted.WithLabelValues("sync", "error").Inc()
			err := values.Chain(stashed.MaterializeError(), values.Capture(1, sched.StackDepth()))
			return nil, err
		}
		m.TasksExecuted.WithLabelValues("sync", "ok").Inc()
	}

	// Final phase, in the caller, outside any target lock.
	start := time.Now()
	v, err := task.Phase3(caller)
	m.ObservePhase("phase3", start)
	return v, err
}
