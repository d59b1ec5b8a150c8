package isobridge

import (
	"errors"

	"github.com/GriffinCanCode/IsoBridge/isolate"
	"github.com/GriffinCanCode/IsoBridge/values"
)

// Task is a three-phase unit of cross-environment work. Exactly one
// in-flight invocation owns a Task at a time; state flows between phases
// through the Task's own fields as it moves across queues.
//
// Phase1 runs in the caller with its execution right held; an error here
// aborts the invocation before anything is queued. Phase2 runs in the
// target. Phase3 runs back in the caller and produces the caller-visible
// result.
type Task interface {
	Phase1(caller *isolate.Environment) error
	Phase2(target *isolate.Environment) error
	Phase3(caller *isolate.Environment) (any, error)
}

// ScriptTask evaluates JavaScript source in the target environment and
// delivers the exported result to the caller. The result crosses the
// boundary as an external copy; values that cannot be externalized fail
// Phase2.
type ScriptTask struct {
	Source string

	result *values.ExternalCopy
}

func (t *ScriptTask) Phase1(caller *isolate.Environment) error {
	if t.Source == "" {
		return errors.New("script source is empty")
	}
	return nil
}

func (t *ScriptTask) Phase2(target *isolate.Environment) error {
	v, err := target.RunScript(t.Source)
	if err != nil {
		return err
	}
	t.result, err = values.Externalize(v.Export())
	return err
}

func (t *ScriptTask) Phase3(caller *isolate.Environment) (any, error) {
	if t.result == nil {
		return nil, nil
	}
	return t.result.Materialize()
}

// FuncTask adapts plain Go functions to the three-phase protocol. Prepare
// and Finish are optional; Execute's result is handed to Finish, or
// returned as-is when Finish is nil.
type FuncTask struct {
	Prepare func(caller *isolate.Environment) error
	Execute func(target *isolate.Environment) (any, error)
	Finish  func(caller *isolate.Environment, result any) (any, error)

	result any
}

func (t *FuncTask) Phase1(caller *isolate.Environment) error {
	if t.Prepare == nil {
		return nil
	}
	return t.Prepare(caller)
}

func (t *FuncTask) Phase2(target *isolate.Environment) error {
	if t.Execute == nil {
		return nil
	}
	v, err := t.Execute(target)
	if err != nil {
		return err
	}
	t.result = v
	return nil
}

func (t *FuncTask) Phase3(caller *isolate.Environment) (any, error) {
	if t.Finish == nil {
		return t.result, nil
	}
	return t.Finish(caller, t.result)
}
