package skill

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the process-level outcome of one skill invocation.
// Semantic outcomes (e.g. "verification failed") live inside the
// output artifacts, not here.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Artifact is one named output of a skill invocation. Structured
// documents carry a parsed Doc; free text is kept verbatim in Raw.
type Artifact struct {
	Name string         // Artifact name (filename without extension)
	Raw  string         // Verbatim file content
	Doc  map[string]any // Parsed document, nil for free text
}

// Structured reports whether the artifact parsed as a document.
func (a Artifact) Structured() bool {
	return a.Doc != nil
}

// Decode unmarshals the artifact content into out.
func (a Artifact) Decode(out any) error {
	if err := yaml.Unmarshal([]byte(a.Raw), out); err != nil {
		return fmt.Errorf("decode artifact %s: %w", a.Name, err)
	}
	return nil
}

// Result is the output of one skill invocation. It is created per
// invocation, consumed immediately for the next transition decision,
// persisted for audit, and never mutated afterward.
type Result struct {
	Skill    Name
	Status   Status
	Duration time.Duration
	Outputs  map[string]Artifact
}

// Output returns the named artifact and whether it exists.
func (r *Result) Output(name string) (Artifact, bool) {
	a, ok := r.Outputs[name]
	return a, ok
}

// =============================================================================
// Typed Artifact Views
// =============================================================================

// TriagePlan is the structured triage-plan artifact.
type TriagePlan struct {
	Decision            string `yaml:"decision"` // "trivial" or "standard"
	Reasoning           string `yaml:"reasoning,omitempty"`
	EstimatedIterations int    `yaml:"estimated_iterations,omitempty"`
}

// Trivial reports whether triage decided the task needs no loop.
func (p TriagePlan) Trivial() bool {
	return p.Decision == "trivial"
}

// ExecState is the structured state artifact of an execute pass.
type ExecState struct {
	Status              string `yaml:"status"` // "completed", "in_progress", "blocked"
	NextIterationNeeded bool   `yaml:"next_iteration_needed"`
	Summary             string `yaml:"summary,omitempty"`
}

// Completed reports whether the implementation pass finished the task.
func (s ExecState) Completed() bool {
	return s.Status == "completed"
}

// Feedback is the structured feedback artifact a skill emits when it
// has questions for a human.
type Feedback struct {
	HasBlockingQuestions bool     `yaml:"has_blocking_questions"`
	Questions            []string `yaml:"questions,omitempty"`
}

// Verification is the structured verification-results artifact.
type Verification struct {
	Status                 string   `yaml:"status"` // "passed" or "failed"
	RequiresDevilsAdvocate bool     `yaml:"requires_devils_advocate"`
	FailedChecks           []string `yaml:"failed_checks,omitempty"`
	Summary                string   `yaml:"summary,omitempty"`
}

// Passed reports whether verification succeeded.
func (v Verification) Passed() bool {
	return v.Status == "passed"
}

// Analysis is the structured assumption-analysis artifact from a
// devils-advocate pass.
type Analysis struct {
	RootCauseFound    bool    `yaml:"root_cause_found"`
	Confidence        float64 `yaml:"confidence"` // in [0, 1]
	RecommendedAction string  `yaml:"recommended_action"`
	Summary           string  `yaml:"summary,omitempty"`
}

// =============================================================================
// Result Accessors
// =============================================================================

// TriagePlan decodes the triage-plan artifact.
func (r *Result) TriagePlan() (*TriagePlan, error) {
	a, ok := r.Output(ArtifactTriagePlan)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, ArtifactTriagePlan)
	}
	var plan TriagePlan
	if err := a.Decode(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// State decodes the state artifact of an execute pass.
func (r *Result) State() (*ExecState, error) {
	a, ok := r.Output(ArtifactState)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, ArtifactState)
	}
	var state ExecState
	if err := a.Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Feedback returns the feedback artifact if the skill produced one.
// A free-text feedback artifact that does not parse as a document is
// treated as blocking: it exists only to put a question to a human.
func (r *Result) Feedback() (*Feedback, bool) {
	a, ok := r.Output(ArtifactFeedback)
	if !ok {
		return nil, false
	}

	var fb Feedback
	if !a.Structured() || a.Decode(&fb) != nil {
		return &Feedback{HasBlockingQuestions: true}, true
	}
	return &fb, true
}

// Verification decodes the verification-results artifact.
func (r *Result) Verification() (*Verification, error) {
	a, ok := r.Output(ArtifactVerificationResults)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, ArtifactVerificationResults)
	}
	var v Verification
	if err := a.Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Analysis decodes the assumption-analysis artifact.
func (r *Result) Analysis() (*Analysis, error) {
	a, ok := r.Output(ArtifactAssumptionAnalysis)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, ArtifactAssumptionAnalysis)
	}
	var analysis Analysis
	if err := a.Decode(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}
