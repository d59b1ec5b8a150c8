package values

import (
	"fmt"
	"runtime"
	"strings"
)

// Stack is a captured call stack as formatted frames, innermost first.
type Stack []string

// Capture records up to depth frames of the current goroutine, skipping the
// given number of callers above Capture itself.
func Capture(skip, depth int) Stack {
	if depth <= 0 {
		depth = 10
	}
	pc := make([]uintptr, depth)
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make(Stack, 0, n)
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// String renders the stack one frame per line, indented like a traceback.
func (s Stack) String() string {
	if len(s) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, frame := range s {
		sb.WriteString("    at ")
		sb.WriteString(frame)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RemoteError is an error that crossed the bridge. It carries the original
// error name and message plus the chained stack. The cause is only set when
// the error was promoted locally; it never crosses a heap boundary.
type RemoteError struct {
	Name    string
	Message string
	Stack   Stack

	cause error
}

// Unwrap exposes the local cause, if any, so sentinel matching with
// errors.Is keeps working for promoted errors.
func (e *RemoteError) Unwrap() error {
	return e.cause
}

func (e *RemoteError) Error() string {
	if e.Name != "" && e.Name != "Error" {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	return e.Message
}

// Attach sets the stack on err, replacing whatever was there. Non-remote
// errors are promoted to RemoteError first.
func Attach(err error, stack Stack) error {
	re := promote(err)
	re.Stack = stack
	return re
}

// Chain appends stack below err's existing frames. The existing frames stay
// first so the throw site is always read before the invocation site.
func Chain(err error, stack Stack) error {
	re := promote(err)
	re.Stack = append(re.Stack, stack...)
	return re
}

func promote(err error) *RemoteError {
	if re, ok := err.(*RemoteError); ok {
		return re
	}
	return &RemoteError{
		Name:    "Error",
		Message: err.Error(),
		cause:   err,
	}
}
