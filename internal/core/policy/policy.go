// Package policy maps low-level connection results to task-level outcomes.
//
// Connection operations only report success or failure. How much a failure
// matters depends on the task performing the operation, so the same adapter
// can serve tasks with different risk tolerances:
//
//	switch policy.Decide(conn.CreateDirectory(dir), policy.Convenience) {
//	case policy.SoftFail:
//	    // report and skip the rest of the phase
//	case policy.HardFail:
//	    // return a *TaskError
//	}
//
// This is part of the Functional Core - all functions are pure with no I/O.
package policy

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrTaskRuntime is wrapped by every hard task failure.
	ErrTaskRuntime = errors.New("task runtime failure")

	// ErrInvalidArgument is wrapped by task construction errors.
	ErrInvalidArgument = errors.New("invalid argument")
)

// TaskError is a hard failure raised by a task while handling an event.
// It always matches ErrTaskRuntime with errors.Is.
type TaskError struct {
	Task    string // Task that failed
	Event   string // Lifecycle event being handled
	Message string
	Err     error // Underlying cause, may be nil
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Task, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Task, e.Message)
}

func (e *TaskError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTaskRuntime}
	}
	return []error{ErrTaskRuntime, e.Err}
}

// NewTaskError creates a TaskError without an underlying cause.
func NewTaskError(task, event, message string) *TaskError {
	return &TaskError{
		Task:    task,
		Event:   event,
		Message: message,
	}
}

// WrapTaskError creates a TaskError around a cause.
func WrapTaskError(task, event, message string, err error) *TaskError {
	return &TaskError{
		Task:    task,
		Event:   event,
		Message: message,
		Err:     err,
	}
}

// =============================================================================
// Criticality and Outcome
// =============================================================================

// Criticality states how much an operation matters to the task doing it.
type Criticality int

const (
	// Optional operations may fail without consequence.
	Optional Criticality = iota

	// Convenience operations end the current phase quietly when they fail.
	Convenience

	// Required operations abort the lifecycle event when they fail.
	Required
)

func (c Criticality) String() string {
	switch c {
	case Optional:
		return "optional"
	case Convenience:
		return "convenience"
	case Required:
		return "required"
	default:
		return fmt.Sprintf("criticality(%d)", int(c))
	}
}

// Outcome is what the task does after an operation.
type Outcome int

const (
	Continue Outcome = iota
	SoftFail
	HardFail
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case SoftFail:
		return "soft-fail"
	case HardFail:
		return "hard-fail"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decide maps an operation result and its criticality to an outcome.
func Decide(ok bool, criticality Criticality) Outcome {
	if ok {
		return Continue
	}
	switch criticality {
	case Convenience:
		return SoftFail
	case Required:
		return HardFail
	default:
		return Continue
	}
}
