package skillcycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/skillcycle/artifact"
	"github.com/randalmurphal/skillcycle/config"
	"github.com/randalmurphal/skillcycle/manifest"
	"github.com/randalmurphal/skillcycle/pr"
	"github.com/randalmurphal/skillcycle/skill"
	"github.com/randalmurphal/skillcycle/testutil"
)

func testSettings() *config.Settings {
	return &config.Settings{
		MaxIterations:       10,
		MaxVerifyAttempts:   5,
		AnalysisMinAttempt:  3,
		ConfidenceThreshold: 0.85,
		RetryDelay:          time.Millisecond,
		InvokeTimeout:       time.Minute,
	}
}

func newTestController(t *testing.T, ex skill.Executor, opts ...ControllerOption) (*Controller, manifest.Store, *artifact.Store) {
	t.Helper()

	base := t.TempDir()
	store, err := manifest.NewFileStore(filepath.Join(base, "tasks"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	artifacts := artifact.NewStore(artifact.Config{BaseDir: filepath.Join(base, "artifacts")})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]ControllerOption{WithSettings(testSettings()), WithLogger(logger)}, opts...)
	return NewController(store, ex, nil, artifacts, opts...), store, artifacts
}

func TestController_TrivialTask(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("trivial"),
		testutil.ExecStep("completed", false),
	)
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}
	if ex.Remaining() != 0 {
		t.Errorf("unused script steps: %d", ex.Remaining())
	}

	loaded, err := store.Load(m.TaskID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Iteration != 1 {
		t.Errorf("iteration = %d, want 1", loaded.Iteration)
	}
}

func TestController_StandardHappyPath(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("in_progress", true),
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("passed", false),
	)
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}

	want := []skill.Name{skill.Triage, skill.Execute, skill.Execute, skill.PreVerify, skill.Verify}
	got := ex.Skills()
	if len(got) != len(want) {
		t.Fatalf("Skills() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Skills()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", loaded.Iteration)
	}
	if loaded.Context.ValidationStrategyPath == "" {
		t.Error("validation strategy path not recorded")
	}
	if loaded.Context.PreviousStatePath == "" {
		t.Error("previous state path not recorded")
	}
}

func TestController_IterationExhaustionFails(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("in_progress", true),
		testutil.ExecStep("in_progress", true),
		testutil.ExecStep("in_progress", true),
	)
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)
	m.Resources.MaxIterations = 3

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", out)
	}
	if ex.Remaining() != 0 {
		t.Errorf("unused script steps: %d", ex.Remaining())
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Iteration != 3 {
		t.Errorf("iteration = %d, want 3", loaded.Iteration)
	}
}

func TestController_StallEscalates(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("in_progress", false),
	)
	c, _, _ := newTestController(t, ex)

	out, err := c.Start(testutil.TestContext(t), testutil.Manifest(t))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeEscalated {
		t.Errorf("outcome = %s, want escalated", out)
	}
}

func TestController_TriageFeedbackSuspends(t *testing.T) {
	ex := testutil.NewScriptedExecutor(testutil.TriageBlockedStep("Which repository?"))
	c, store, artifacts := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeAwaitingInput {
		t.Errorf("outcome = %s, want awaiting_user_input", out)
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Skill != "triage" {
		t.Errorf("skill = %q, want triage", loaded.Skill)
	}
	if loaded.Context.PendingQuestionsPath == "" {
		t.Error("pending questions path not recorded")
	}
	if !artifacts.Has(m.TaskID, "pending-questions.md") {
		t.Error("pending-questions.md not written")
	}
}

func TestController_BlockingFeedbackMidLoop(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("in_progress", true),
		testutil.ExecBlockedStep("Should the cache be invalidated eagerly?"),
	)
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeAwaitingInput {
		t.Errorf("outcome = %s, want awaiting_user_input", out)
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Skill != "execute" {
		t.Errorf("skill = %q, want execute", loaded.Skill)
	}
	if loaded.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", loaded.Iteration)
	}
}

func TestController_ResumeContinuesFromExecute(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecBlockedStep("Which API version?"),
	)
	c, store, artifacts := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeAwaitingInput {
		t.Fatalf("outcome = %s, want awaiting_user_input", out)
	}

	// A fresh controller picks the task back up, as a separate process
	// would after the user answers.
	ex2 := testutil.NewScriptedExecutor(
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("passed", false),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c2 := NewController(store, ex2, nil, artifacts, WithSettings(testSettings()), WithLogger(logger))

	answers := map[string]string{"Which API version?": "v2"}
	out, err = c2.Resume(testutil.TestContext(t), m.TaskID, answers)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}
	if got := ex2.Skills(); got[0] != skill.Execute {
		t.Errorf("resume re-entered at %s, want execute", got[0])
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Context.PendingQuestionsPath != "" {
		t.Error("pending questions path should be cleared")
	}
	if loaded.Context.UserResponsesPath == "" {
		t.Error("user responses path not recorded")
	}
	if !artifacts.Has(m.TaskID, "user-responses.md") {
		t.Error("user-responses.md not written")
	}
}

func TestController_AutoFixPath(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", true),
		testutil.AnalysisStep(true, 0.9, "auto_fix"),
		testutil.ExecStep("completed", false),
		testutil.VerifyStep("passed", false),
	)
	c, store, artifacts := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}
	if ex.Remaining() != 0 {
		t.Errorf("unused script steps: %d", ex.Remaining())
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Iteration != 2 {
		t.Errorf("iteration = %d, want 2 after one auto-fix pass", loaded.Iteration)
	}
	if loaded.Context.VerifyAttempt != 4 {
		t.Errorf("verify attempt = %d, want 4", loaded.Context.VerifyAttempt)
	}
	if loaded.Context.AnalysisPath == "" {
		t.Error("analysis path not recorded")
	}
	if !artifacts.Has(m.TaskID, "verification-history.md") {
		t.Error("verification-history.md not written")
	}
}

func TestController_LowConfidenceAnalysisSuspends(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", true),
		testutil.AnalysisStep(true, 0.6, "auto_fix"),
	)
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeAwaitingInput {
		t.Errorf("outcome = %s, want awaiting_user_input", out)
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Skill != "devils-advocate" {
		t.Errorf("skill = %q, want devils-advocate", loaded.Skill)
	}
}

func TestController_ResumeFromAnalysisRunsFixPass(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", true),
		testutil.AnalysisStep(false, 0.4, "redesign"),
	)
	c, store, artifacts := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeAwaitingInput {
		t.Fatalf("outcome = %s, want awaiting_user_input", out)
	}

	ex2 := testutil.NewScriptedExecutor(
		testutil.ExecStep("completed", false),
		testutil.VerifyStep("passed", false),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c2 := NewController(store, ex2, nil, artifacts, WithSettings(testSettings()), WithLogger(logger))

	out, err = c2.Resume(testutil.TestContext(t), m.TaskID, map[string]string{
		"How should the task proceed?": "Pin the dependency and re-run.",
	})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}

	want := []skill.Name{skill.Execute, skill.Verify}
	got := ex2.Skills()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Skills() = %v, want %v", got, want)
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Iteration != 2 {
		t.Errorf("iteration = %d, want 2 after directed fix pass", loaded.Iteration)
	}
}

func TestController_VerifyExhaustionEscalates(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
		testutil.VerifyStep("failed", false),
	)
	c, store, artifacts := newTestController(t, ex)
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeEscalated {
		t.Errorf("outcome = %s, want escalated", out)
	}
	if ex.Remaining() != 0 {
		t.Errorf("unused script steps: %d", ex.Remaining())
	}

	history, err := artifacts.Load(m.TaskID, "verification-history.md")
	if err != nil {
		t.Fatalf("Load(verification-history.md) error = %v", err)
	}
	for _, heading := range []string{"## Attempt 1", "## Attempt 5"} {
		if !strings.Contains(string(history), heading) {
			t.Errorf("history missing %q", heading)
		}
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Context.VerificationHistoryPath == "" {
		t.Error("verification history path not recorded")
	}
}

func TestController_OpensPullRequestOnCompletion(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("standard"),
		testutil.ExecStep("completed", false),
		testutil.PreVerifyStep(),
		testutil.VerifyStep("passed", false),
	)
	mock := &pr.MockProvider{}
	c, store, _ := newTestController(t, ex, WithPRProvider(mock))
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", out)
	}

	if len(mock.Created) != 1 {
		t.Fatalf("CreatePR calls = %d, want 1", len(mock.Created))
	}
	opts := mock.Created[0]
	if opts.Head != "feature/retry" || opts.Base != "main" {
		t.Errorf("PR branches = %s -> %s, want feature/retry -> main", opts.Head, opts.Base)
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Git.PRNumber != 1 {
		t.Errorf("PR number = %d, want 1", loaded.Git.PRNumber)
	}
}

func TestController_PRFailureDoesNotUncomplete(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.TriageStep("trivial"),
		testutil.ExecStep("completed", false),
	)
	mock := &pr.MockProvider{
		CreatePRFunc: func(ctx context.Context, opts pr.Options) (*pr.PullRequest, error) {
			return nil, errors.New("api unavailable")
		},
	}
	c, store, _ := newTestController(t, ex, WithPRProvider(mock))
	m := testutil.Manifest(t)

	out, err := c.Start(testutil.TestContext(t), m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}

	loaded, _ := store.Load(m.TaskID)
	if loaded.Git.PRNumber != 0 {
		t.Errorf("PR number = %d, want 0 after failed creation", loaded.Git.PRNumber)
	}
}

func TestController_FatalInvocationLeavesResumableManifest(t *testing.T) {
	ex := testutil.NewScriptedExecutor(testutil.FailStep(skill.ErrInvocationTimeout))
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)

	_, err := c.Start(testutil.TestContext(t), m)
	if !errors.Is(err, skill.ErrInvocationTimeout) {
		t.Fatalf("Start() error = %v, want invocation timeout", err)
	}

	loaded, err := store.Load(m.TaskID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Skill != "triage" {
		t.Errorf("skill = %q, want triage", loaded.Skill)
	}
}

func TestController_TransientErrorRetriedOnce(t *testing.T) {
	ex := testutil.NewScriptedExecutor(
		testutil.FailStep(errors.New("container crashed")),
		testutil.TriageStep("trivial"),
		testutil.ExecStep("completed", false),
	)
	c, _, _ := newTestController(t, ex)

	out, err := c.Start(testutil.TestContext(t), testutil.Manifest(t))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out != OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", out)
	}
	if len(ex.Calls) != 3 {
		t.Errorf("invocations = %d, want 3 (triage retried once)", len(ex.Calls))
	}
}

func TestController_NoWorkspace(t *testing.T) {
	ex := testutil.NewScriptedExecutor()
	c, _, _ := newTestController(t, ex)

	m := manifest.New(
		manifest.TaskInfo{Title: "Add retry logic"},
		manifest.GitInfo{RepoURL: "https://github.com/acme/widget.git", TargetBranch: "feature/retry"},
	)
	_, err := c.Start(testutil.TestContext(t), m)
	if !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("Start() error = %v, want ErrNoWorkspace", err)
	}
}
