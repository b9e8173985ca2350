package skillcycle

import "errors"

// Controller errors.
var (
	// ErrUnknownState indicates the manifest records a skill name the
	// controller cannot resume from.
	ErrUnknownState = errors.New("unknown cycle state")

	// ErrNotSuspended indicates Resume was called for a task that has
	// no pending questions.
	ErrNotSuspended = errors.New("task is not awaiting user input")

	// ErrNoWorkspace indicates the cycle cannot run because no
	// workspace could be established for the task.
	ErrNoWorkspace = errors.New("no workspace for task")
)
