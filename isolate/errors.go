package isolate

import "errors"

var (
	// ErrDisposed is returned when an operation targets an environment that
	// has been disposed. The message is fixed; callers match on it.
	ErrDisposed = errors.New("environment is disposed")

	// ErrDeadlock is returned when a synchronous cross-environment call is
	// attempted from a goroutine that is already executing an asynchronous
	// task. Such a call could wait on a lock whose holder is waiting on a
	// task queued back to the calling environment.
	ErrDeadlock = errors.New("calling a synchronous bridge function from within an asynchronous bridge task is not allowed")
)
