package skillcycle

import (
	"github.com/randalmurphal/skillcycle/skill"
)

// =============================================================================
// States and Outcomes
// =============================================================================

// State identifies where in the cycle a task currently is. The manifest
// records the state as the last/next skill name, so resumed runs
// re-enter at the same logical point.
type State string

const (
	StateTriage    State = "triage"
	StateExecute   State = "execute"
	StatePreVerify State = "pre-verify"
	StateVerify    State = "verify"
	StateAnalysis  State = "devils-advocate"

	// stateDone signals the cycle reached a terminal outcome.
	stateDone State = ""
)

// stateFor maps the manifest's recorded skill name onto the state to
// resume from. An empty name starts a fresh cycle at triage.
func stateFor(skillName string) (State, bool) {
	switch State(skillName) {
	case "", StateTriage:
		return StateTriage, true
	case StateExecute:
		return StateExecute, true
	case StatePreVerify:
		return StatePreVerify, true
	case StateVerify:
		return StateVerify, true
	case StateAnalysis:
		return StateAnalysis, true
	}
	return "", false
}

// Outcome is the controller's only externally visible return value.
// Callers must not infer finer detail without inspecting the manifest
// and artifacts.
type Outcome string

const (
	// OutcomeCompleted means the cycle finished with verification passed
	// (or a trivial task completed in a single pass).
	OutcomeCompleted Outcome = "completed"

	// OutcomeAwaitingInput means the cycle suspended on a question only
	// a human can answer. The task resumes via Controller.Resume.
	OutcomeAwaitingInput Outcome = "awaiting_user_input"

	// OutcomeFailed means a hard numeric bound was exhausted without
	// success.
	OutcomeFailed Outcome = "failed"

	// OutcomeEscalated means automated progress stalled in a way that
	// requires human judgment, distinct from exhausting a bound.
	OutcomeEscalated Outcome = "escalated"
)

// Terminal reports whether the outcome ends the task. Suspension is
// not terminal: the manifest retains enough context to resume.
func (o Outcome) Terminal() bool {
	return o == OutcomeCompleted || o == OutcomeFailed || o == OutcomeEscalated
}

// =============================================================================
// Transition Decisions
// =============================================================================

// Action is the decision produced by examining one skill result.
type Action int

const (
	// ActionSuspend pauses the cycle pending human input.
	ActionSuspend Action = iota

	// ActionProceed advances to the next stage.
	ActionProceed

	// ActionRepeat runs another pass of the current loop.
	ActionRepeat

	// ActionComplete terminates the cycle successfully.
	ActionComplete

	// ActionFail terminates the cycle on bound exhaustion.
	ActionFail

	// ActionEscalate terminates the cycle for human follow-up.
	ActionEscalate

	// ActionAnalyze invokes the devils-advocate skill before deciding
	// the next move of the verify loop.
	ActionAnalyze

	// ActionAutoFix runs one remediation implementation pass and then
	// continues the verify loop.
	ActionAutoFix
)

func (a Action) String() string {
	switch a {
	case ActionSuspend:
		return "suspend"
	case ActionProceed:
		return "proceed"
	case ActionRepeat:
		return "repeat"
	case ActionComplete:
		return "complete"
	case ActionFail:
		return "fail"
	case ActionEscalate:
		return "escalate"
	case ActionAnalyze:
		return "analyze"
	case ActionAutoFix:
		return "auto-fix"
	}
	return "unknown"
}

// Each decider below is a pure function of the manifest values and the
// most recent skill result. The driver in controller.go performs all
// I/O and persistence around them.

// decideTriage maps a triage result onto the first transition. Any
// feedback artifact from triage suspends the cycle; otherwise the
// returned plan carries the trivial/standard decision.
func decideTriage(res *skill.Result) (Action, *skill.TriagePlan, error) {
	if _, ok := res.Output(skill.ArtifactFeedback); ok {
		return ActionSuspend, nil, nil
	}

	plan, err := res.TriagePlan()
	if err != nil {
		return ActionSuspend, nil, err
	}
	return ActionProceed, plan, nil
}

// decideExecute maps one execute pass onto the next move of the loop.
func decideExecute(res *skill.Result, iteration, maxIterations int) (Action, error) {
	if fb, ok := res.Feedback(); ok && fb.HasBlockingQuestions {
		return ActionSuspend, nil
	}

	state, err := res.State()
	if err != nil {
		return ActionSuspend, err
	}

	if state.Completed() {
		return ActionProceed, nil
	}
	if !state.NextIterationNeeded {
		// Work stalled without an explicit continuation signal. This is
		// escalation, not failure: the bound was not exhausted.
		return ActionEscalate, nil
	}
	if iteration >= maxIterations {
		return ActionFail, nil
	}
	return ActionRepeat, nil
}

// decideVerify maps one verify attempt onto the next move of the loop.
// Deeper analysis is requested only from analysisMinAttempt onward so a
// single transient failure never triggers the most expensive skill.
func decideVerify(v *skill.Verification, attempt, maxAttempts, analysisMinAttempt int) Action {
	if v.Passed() {
		return ActionComplete
	}
	if v.RequiresDevilsAdvocate && attempt >= analysisMinAttempt {
		return ActionAnalyze
	}
	if attempt >= maxAttempts {
		return ActionEscalate
	}
	return ActionRepeat
}

// decideAnalysis gates the single automated remediation path. All
// three conditions must hold; anything short of that defers to a human.
func decideAnalysis(a *skill.Analysis, confidenceThreshold float64) Action {
	if a.RootCauseFound && a.Confidence >= confidenceThreshold && a.RecommendedAction == "auto_fix" {
		return ActionAutoFix
	}
	return ActionSuspend
}
