package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/skillcycle/skill"
)

func TestSetupTestRepo(t *testing.T) {
	dir := SetupTestRepo(t)

	gitDir := filepath.Join(dir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		t.Error(".git directory does not exist")
	}

	if branch := GetCurrentBranch(t, dir); branch != "main" {
		t.Errorf("branch = %q, want main", branch)
	}

	CreateBranch(t, dir, "feature/x")
	CommitFile(t, dir, "x.txt", "x\n", "Add x")
	if branch := GetCurrentBranch(t, dir); branch != "feature/x" {
		t.Errorf("branch = %q, want feature/x", branch)
	}

	SwitchBranch(t, dir, "main")
	if _, err := os.Stat(filepath.Join(dir, "x.txt")); !os.IsNotExist(err) {
		t.Error("x.txt should not exist on main")
	}
}

func TestScriptedExecutor(t *testing.T) {
	ex := NewScriptedExecutor(
		TriageStep("standard"),
		ExecStep("completed", false),
	)
	ctx := TestContext(t)

	res, err := ex.Execute(ctx, skill.Invocation{Skill: skill.Triage})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	plan, err := res.TriagePlan()
	if err != nil {
		t.Fatalf("TriagePlan() error = %v", err)
	}
	if plan.Trivial() {
		t.Error("standard decision should not be trivial")
	}

	res, err = ex.Execute(ctx, skill.Invocation{Skill: skill.Execute})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	state, err := res.State()
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !state.Completed() {
		t.Error("state should be completed")
	}

	if _, err := ex.Execute(ctx, skill.Invocation{Skill: skill.Verify}); err == nil {
		t.Error("exhausted script should error")
	}

	want := []skill.Name{skill.Triage, skill.Execute, skill.Verify}
	got := ex.Skills()
	if len(got) != len(want) {
		t.Fatalf("Skills() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Skills()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScriptedExecutor_BlockingFeedback(t *testing.T) {
	ex := NewScriptedExecutor(ExecBlockedStep("Which API version?"))

	res, err := ex.Execute(TestContext(t), skill.Invocation{Skill: skill.Execute})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	fb, ok := res.Feedback()
	if !ok {
		t.Fatal("expected feedback artifact")
	}
	if !fb.HasBlockingQuestions {
		t.Error("feedback should be blocking")
	}
	if len(fb.Questions) != 1 || fb.Questions[0] != "Which API version?" {
		t.Errorf("Questions = %v", fb.Questions)
	}
}
