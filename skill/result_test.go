package skill

import (
	"errors"
	"testing"
)

func yamlArtifact(name, raw string) Artifact {
	a := Artifact{Name: name, Raw: raw}
	a.Doc = map[string]any{}
	return a
}

func resultWith(skill Name, artifacts ...Artifact) *Result {
	outputs := make(map[string]Artifact, len(artifacts))
	for _, a := range artifacts {
		outputs[a.Name] = a
	}
	return &Result{Skill: skill, Status: StatusSuccess, Outputs: outputs}
}

func TestResult_TriagePlan(t *testing.T) {
	r := resultWith(Triage, yamlArtifact(ArtifactTriagePlan,
		"decision: trivial\nreasoning: one-line fix\nestimated_iterations: 1\n"))

	plan, err := r.TriagePlan()
	if err != nil {
		t.Fatalf("TriagePlan: %v", err)
	}
	if !plan.Trivial() {
		t.Error("plan should be trivial")
	}
	if plan.EstimatedIterations != 1 {
		t.Errorf("EstimatedIterations = %d", plan.EstimatedIterations)
	}
}

func TestResult_TriagePlan_Missing(t *testing.T) {
	r := resultWith(Triage)
	_, err := r.TriagePlan()
	if !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("err = %v, want ErrMissingArtifact", err)
	}
}

func TestResult_State(t *testing.T) {
	r := resultWith(Execute, yamlArtifact(ArtifactState,
		"status: in_progress\nnext_iteration_needed: true\nsummary: added parser\n"))

	state, err := r.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Completed() {
		t.Error("state should not be completed")
	}
	if !state.NextIterationNeeded {
		t.Error("NextIterationNeeded should be true")
	}
}

func TestResult_Feedback(t *testing.T) {
	tests := []struct {
		name         string
		artifact     *Artifact
		wantPresent  bool
		wantBlocking bool
	}{
		{
			name:        "absent",
			artifact:    nil,
			wantPresent: false,
		},
		{
			name: "structured non-blocking",
			artifact: &Artifact{
				Name: ArtifactFeedback,
				Raw:  "has_blocking_questions: false\n",
				Doc:  map[string]any{"has_blocking_questions": false},
			},
			wantPresent:  true,
			wantBlocking: false,
		},
		{
			name: "structured blocking",
			artifact: &Artifact{
				Name: ArtifactFeedback,
				Raw:  "has_blocking_questions: true\nquestions:\n  - which database?\n",
				Doc:  map[string]any{"has_blocking_questions": true},
			},
			wantPresent:  true,
			wantBlocking: true,
		},
		{
			name: "free text treated as blocking",
			artifact: &Artifact{
				Name: ArtifactFeedback,
				Raw:  "# Questions\n\nWhich database should this target?\n",
			},
			wantPresent:  true,
			wantBlocking: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resultWith(Execute)
			if tt.artifact != nil {
				r.Outputs[tt.artifact.Name] = *tt.artifact
			}

			fb, present := r.Feedback()
			if present != tt.wantPresent {
				t.Fatalf("present = %v, want %v", present, tt.wantPresent)
			}
			if present && fb.HasBlockingQuestions != tt.wantBlocking {
				t.Errorf("HasBlockingQuestions = %v, want %v", fb.HasBlockingQuestions, tt.wantBlocking)
			}
		})
	}
}

func TestResult_Verification(t *testing.T) {
	r := resultWith(Verify, yamlArtifact(ArtifactVerificationResults,
		"status: failed\nrequires_devils_advocate: true\nfailed_checks:\n  - unit tests\n"))

	v, err := r.Verification()
	if err != nil {
		t.Fatalf("Verification: %v", err)
	}
	if v.Passed() {
		t.Error("verification should not pass")
	}
	if !v.RequiresDevilsAdvocate {
		t.Error("RequiresDevilsAdvocate should be true")
	}
	if len(v.FailedChecks) != 1 {
		t.Errorf("FailedChecks = %v", v.FailedChecks)
	}
}

func TestResult_Analysis(t *testing.T) {
	r := resultWith(DevilsAdvocate, yamlArtifact(ArtifactAssumptionAnalysis,
		"root_cause_found: true\nconfidence: 0.92\nrecommended_action: auto_fix\n"))

	a, err := r.Analysis()
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if !a.RootCauseFound || a.Confidence != 0.92 || a.RecommendedAction != "auto_fix" {
		t.Errorf("Analysis = %+v", a)
	}
}
