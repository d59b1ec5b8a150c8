package isobridge

import (
	"github.com/GriffinCanCode/IsoBridge/future"
	"github.com/GriffinCanCode/IsoBridge/isolate"
	"github.com/GriffinCanCode/IsoBridge/tracing"
	"github.com/GriffinCanCode/IsoBridge/values"
)

// calleeInfo bundles the caller-bound state threaded through an
// asynchronous invocation: the future to settle, a handle to the caller
// environment, the stack captured at the invocation site, and the tracing
// token. It is moved between queue entries, never copied, and destroyed
// after Phase3 or the orphan fallback runs.
type calleeInfo struct {
	resolver *future.Future[any]
	caller   *isolate.Holder
	stack    values.Stack
	token    *tracing.Token
	tracer   *tracing.Tracer
}

// newCalleeInfo captures the invocation site. The tracing token opens only
// when the call originates on the host's primary goroutine.
func newCalleeInfo(caller *isolate.Environment, fut *future.Future[any], label string) *calleeInfo {
	sched := caller.Scheduler()
	info := &calleeInfo{
		resolver: fut,
		caller:   caller.Holder(),
		stack:    values.Capture(2, sched.StackDepth()),
		tracer:   sched.Tracer(),
	}
	info.token = info.tracer.Open(caller.ID(), fut, label, sched.IsPrimary())
	return info
}

func (c *calleeInfo) close() {
	c.tracer.Close(c.token)
}
