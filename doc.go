/*
Package isobridge bridges calls between isolated execution environments.

# Overview

An environment (package isolate) is an isolated unit of execution: its own
goja heap, its own FIFO inbox, and a single exclusive execution right. This
package implements the protocol that lets code entered in one environment
invoke work inside another and get the result, or a faithfully
stack-chained failure, back.

Every cross-environment call is a Task with three phases:

 1. Phase1 runs synchronously in the caller: validate and prepare.
 2. Phase2 runs in the target: do the work.
 3. Phase3 runs back in the caller: convert the outcome.

# Asynchronous mode

RunAsync queues Phase2 against the target and returns a future bound to the
caller. The future settles exactly once: resolved by Phase3, rejected by a
failure in Phase2 or Phase3, or rejected by the orphan fallback when the
target is disposed before the queued item ever runs. Disposal races can
never leave a future unsettled.

# Synchronous mode

RunSync blocks the calling goroutine on the target's execution lock and
returns Phase3's value directly. Two guards keep this safe: a goroutine
already holding the target's execution right runs Phase2 inline without
locking, and any other goroutine must be the host's designated
blocking-capable goroutine (Scheduler.MarkPrimary); a worker inside an
asynchronous task is refused before any lock attempt, because the lock's
holder may itself be waiting on work queued back to the worker's
environment.

# Fire and ignore

RunIgnored queues Phase2 with no result channel. Failures are swallowed by
contract.

# Failure transport

A Phase2 failure is externalized (package values) into a representation
that holds no reference to the target's heap, carried back, materialized in
the caller, and rejected with the invocation-site stack chained below the
throw-site stack.

# Usage

	sched := isolate.NewScheduler(isolate.Options{})
	sched.MarkPrimary()
	defer sched.Shutdown()

	caller := sched.NewEnvironment()
	target := sched.NewEnvironment()

	var fut *future.Future[any]
	caller.Enter(func(env *isolate.Environment) error {
		f, err := isobridge.RunAsync(env, target.Holder(), &isobridge.ScriptTask{Source: "6 * 7"})
		fut = f
		return err
	})
	result, err := fut.Get() // 42
*/
package isobridge
