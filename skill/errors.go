package skill

import (
	"errors"
	"fmt"
)

// Invocation errors.
var (
	// ErrUnknownSkill indicates a skill name outside the closed set.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrInvocationFailed indicates the skill process exited non-zero
	// or could not be started.
	ErrInvocationFailed = errors.New("skill invocation failed")

	// ErrInvocationTimeout indicates the skill exceeded its time bound.
	ErrInvocationTimeout = errors.New("skill invocation timed out")

	// ErrMissingArtifact indicates a required output artifact was not
	// produced. This is a hard failure, never an absent/false value.
	ErrMissingArtifact = errors.New("missing expected output artifact")
)

// InvocationError is the fatal error surfaced by the invocation
// boundary after retries are exhausted. The manifest stays valid for a
// later resume attempt at the same step.
type InvocationError struct {
	Skill    Name  // Skill that was invoked
	Attempts int   // Invocation attempts made
	Err      error // Underlying error from the last attempt
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("skill %s failed after %d attempt(s): %v", e.Skill, e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsFatalInvocation reports whether err is an invocation-boundary
// failure that should abort the current controller run. Semantic
// failures reported inside a successful result never satisfy this.
func IsFatalInvocation(err error) bool {
	var invErr *InvocationError
	return errors.As(err, &invErr)
}
