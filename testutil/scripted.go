// Package testutil provides fixtures for cycle tests: a scripted skill
// executor, manifest builders, and throwaway git repositories.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/skillcycle/manifest"
	"github.com/randalmurphal/skillcycle/skill"
)

// Step is one scripted response of a ScriptedExecutor.
type Step struct {
	Result *skill.Result
	Err    error
}

// ScriptedExecutor implements skill.Executor by replaying a fixed
// sequence of results. It records every invocation it receives.
type ScriptedExecutor struct {
	mu    sync.Mutex
	steps []Step

	// Calls records the invocations in order.
	Calls []skill.Invocation
}

// NewScriptedExecutor creates an executor that replays steps in order.
func NewScriptedExecutor(steps ...Step) *ScriptedExecutor {
	return &ScriptedExecutor{steps: steps}
}

// Execute implements skill.Executor.
func (e *ScriptedExecutor) Execute(ctx context.Context, inv skill.Invocation) (*skill.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Calls = append(e.Calls, inv)
	if len(e.steps) == 0 {
		return nil, fmt.Errorf("unexpected invocation of %s (script exhausted)", inv.Skill)
	}

	step := e.steps[0]
	e.steps = e.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}

	r := step.Result
	if r.Skill == "" {
		r.Skill = inv.Skill
	}
	return r, nil
}

// Skills returns the skill names of the recorded invocations in order.
func (e *ScriptedExecutor) Skills() []skill.Name {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]skill.Name, len(e.Calls))
	for i, c := range e.Calls {
		names[i] = c.Skill
	}
	return names
}

// Remaining returns how many scripted steps were not consumed.
func (e *ScriptedExecutor) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.steps)
}

// =============================================================================
// Result Builders
// =============================================================================

// YAMLArtifact builds an artifact from raw YAML, parsing it into a
// document the way executors do.
func YAMLArtifact(name, raw string) skill.Artifact {
	a := skill.Artifact{Name: name, Raw: raw}
	var doc map[string]any
	if yaml.Unmarshal([]byte(raw), &doc) == nil && doc != nil {
		a.Doc = doc
	}
	return a
}

// TextArtifact builds a free-text artifact.
func TextArtifact(name, raw string) skill.Artifact {
	return skill.Artifact{Name: name, Raw: raw}
}

// Result builds a successful skill result from artifacts.
func Result(name skill.Name, artifacts ...skill.Artifact) *skill.Result {
	outputs := make(map[string]skill.Artifact, len(artifacts))
	for _, a := range artifacts {
		outputs[a.Name] = a
	}
	return &skill.Result{
		Skill:   name,
		Status:  skill.StatusSuccess,
		Outputs: outputs,
	}
}

// TriageStep scripts a triage result with the given decision
// ("trivial" or "standard").
func TriageStep(decision string) Step {
	raw := fmt.Sprintf("decision: %s\n", decision)
	return Step{Result: Result(skill.Triage, YAMLArtifact(skill.ArtifactTriagePlan, raw))}
}

// TriageBlockedStep scripts a triage result carrying a feedback
// artifact, which suspends the cycle.
func TriageBlockedStep(questions ...string) Step {
	return Step{Result: Result(skill.Triage,
		YAMLArtifact(skill.ArtifactTriagePlan, "decision: standard\n"),
		feedbackArtifact(questions),
	)}
}

// ExecStep scripts an execute pass with the given status and
// continuation signal.
func ExecStep(status string, nextIteration bool) Step {
	raw := fmt.Sprintf("status: %s\nnext_iteration_needed: %v\nsummary: pass done\n", status, nextIteration)
	return Step{Result: Result(skill.Execute, YAMLArtifact(skill.ArtifactState, raw))}
}

// ExecBlockedStep scripts an execute pass raising blocking questions.
func ExecBlockedStep(questions ...string) Step {
	return Step{Result: Result(skill.Execute,
		YAMLArtifact(skill.ArtifactState, "status: in_progress\nnext_iteration_needed: true\n"),
		feedbackArtifact(questions),
	)}
}

// PreVerifyStep scripts a pre-verify result.
func PreVerifyStep() Step {
	return Step{Result: Result(skill.PreVerify,
		TextArtifact(skill.ArtifactValidationStrategy, "# Validation Strategy\n\n- run tests\n"),
	)}
}

// VerifyStep scripts a verify attempt.
func VerifyStep(status string, requiresAnalysis bool) Step {
	raw := fmt.Sprintf("status: %s\nrequires_devils_advocate: %v\nsummary: checks ran\n", status, requiresAnalysis)
	return Step{Result: Result(skill.Verify, YAMLArtifact(skill.ArtifactVerificationResults, raw))}
}

// AnalysisStep scripts a devils-advocate result.
func AnalysisStep(rootCauseFound bool, confidence float64, action string) Step {
	raw := fmt.Sprintf("root_cause_found: %v\nconfidence: %v\nrecommended_action: %s\n",
		rootCauseFound, confidence, action)
	return Step{Result: Result(skill.DevilsAdvocate, YAMLArtifact(skill.ArtifactAssumptionAnalysis, raw))}
}

// FailStep scripts an invocation error.
func FailStep(err error) Step {
	return Step{Err: err}
}

func feedbackArtifact(questions []string) skill.Artifact {
	raw := "has_blocking_questions: true\nquestions:\n"
	for _, q := range questions {
		raw += fmt.Sprintf("  - %q\n", q)
	}
	return YAMLArtifact(skill.ArtifactFeedback, raw)
}

// =============================================================================
// Manifest Fixture
// =============================================================================

// Manifest builds a valid manifest with a throwaway workspace path, so
// controllers under test can run without a provisioner.
func Manifest(t *testing.T) *manifest.Manifest {
	t.Helper()

	m := manifest.New(
		manifest.TaskInfo{Title: "Add retry logic", Description: "Retry transient failures."},
		manifest.GitInfo{
			RepoURL:      "https://github.com/acme/widget.git",
			TargetBranch: "feature/retry",
			MainBranch:   "main",
		},
	)
	m.Context.WorkspacePath = t.TempDir()
	return m
}
