package skill

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultRetryDelay is the pause before the single automatic retry of
// a transient invocation failure.
const DefaultRetryDelay = 10 * time.Second

// Invoke runs one skill through the executor with the standard retry
// policy: a transient process failure gets exactly one retry after
// retryDelay, while timeouts and missing required artifacts fail
// immediately. Semantic failures live inside a successful Result and
// never reach this boundary.
func Invoke(ctx context.Context, ex Executor, inv Invocation, retryDelay time.Duration) (*Result, error) {
	if !inv.Skill.Valid() {
		return nil, &InvocationError{Skill: inv.Skill, Attempts: 0, Err: ErrUnknownSkill}
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		result, err := ex.Execute(ctx, inv)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrInvocationTimeout) || errors.Is(err, ErrMissingArtifact) {
			return nil, &InvocationError{Skill: inv.Skill, Attempts: attempt, Err: err}
		}
		if ctx.Err() != nil {
			return nil, &InvocationError{Skill: inv.Skill, Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == 2 {
			break
		}

		slog.Warn("skill invocation failed, retrying",
			"skill", inv.Skill,
			"attempt", attempt,
			"delay", retryDelay,
			"error", err)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, &InvocationError{Skill: inv.Skill, Attempts: attempt, Err: ctx.Err()}
		}
	}

	return nil, &InvocationError{Skill: inv.Skill, Attempts: 2, Err: lastErr}
}
