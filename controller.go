package skillcycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/randalmurphal/skillcycle/artifact"
	"github.com/randalmurphal/skillcycle/config"
	"github.com/randalmurphal/skillcycle/history"
	"github.com/randalmurphal/skillcycle/manifest"
	"github.com/randalmurphal/skillcycle/notify"
	"github.com/randalmurphal/skillcycle/pr"
	"github.com/randalmurphal/skillcycle/skill"
	"github.com/randalmurphal/skillcycle/workspace"
)

// Well-known task-level artifact filenames.
const (
	pendingQuestionsFile = "pending-questions.md"
	userResponsesFile    = "user-responses.md"
	verifyHistoryFile    = "verification-history.md"
)

// =============================================================================
// Controller
// =============================================================================

// Controller drives one task's cycle from triage to a terminal or
// suspend outcome. It is stateless except through the manifest and
// artifact stores it is given, so many tasks may run concurrently, each
// owning a disjoint manifest and workspace.
type Controller struct {
	store      manifest.Store
	executor   skill.Executor
	workspaces workspace.Provisioner
	artifacts  *artifact.Store
	settings   *config.Settings
	history    *history.Log
	notifier   notify.Notifier
	prs        pr.Provider
	logger     *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSettings overrides the resolved configuration.
func WithSettings(s *config.Settings) ControllerOption {
	return func(c *Controller) { c.settings = s }
}

// WithHistory enables the per-task invocation audit log.
func WithHistory(l *history.Log) ControllerOption {
	return func(c *Controller) { c.history = l }
}

// WithNotifier sets the notifier for cycle events.
func WithNotifier(n notify.Notifier) ControllerOption {
	return func(c *Controller) { c.notifier = n }
}

// WithPRProvider enables opening a pull request when a cycle completes.
func WithPRProvider(p pr.Provider) ControllerOption {
	return func(c *Controller) { c.prs = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a cycle controller. The workspace provisioner
// may be nil when every manifest already carries a workspace path.
func NewController(store manifest.Store, executor skill.Executor, workspaces workspace.Provisioner, artifacts *artifact.Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:      store,
		executor:   executor,
		workspaces: workspaces,
		artifacts:  artifacts,
		notifier:   notify.NopNotifier{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings == nil {
		c.settings = config.Load()
	}
	return c
}

// cycleStats accumulates the bits of a run that feed the pull request
// summary. Never persisted.
type cycleStats struct {
	execSummary    string
	verifySummary  string
	verifyAttempts int
}

// Start validates and persists a fresh manifest, then runs its cycle.
func (c *Controller) Start(ctx context.Context, m *manifest.Manifest) (Outcome, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if err := c.store.Save(m); err != nil {
		return "", err
	}
	return c.run(ctx, m)
}

// Run loads an existing task's manifest and runs (or resumes) its
// cycle from the recorded logical point.
func (c *Controller) Run(ctx context.Context, taskID string) (Outcome, error) {
	m, err := c.store.Load(taskID)
	if err != nil {
		return "", err
	}
	return c.run(ctx, m)
}

func (c *Controller) run(ctx context.Context, m *manifest.Manifest) (Outcome, error) {
	st, ok := stateFor(m.Skill)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, m.Skill)
	}

	if c.workspaces != nil {
		ws, err := c.workspaces.Provision(m)
		if err != nil {
			return "", fmt.Errorf("provision workspace: %w", err)
		}
		m.Context.WorkspacePath = ws.Path
		m.Context.WorkspaceToken = ws.Token
	} else if m.Context.WorkspacePath == "" {
		return "", fmt.Errorf("%w: %s", ErrNoWorkspace, m.TaskID)
	}

	// Resume checkpoint: the workspace location is durable before any
	// skill runs.
	if err := c.store.Save(m); err != nil {
		return "", err
	}

	c.event(ctx, notify.EventTaskStarted, m, "",
		fmt.Sprintf("cycle entered at %s", st), notify.SeverityInfo, nil)
	c.logger.Info("cycle started",
		"task_id", m.TaskID, "state", st, "iteration", m.Iteration)

	stats := &cycleStats{}
	for {
		var (
			next State
			out  Outcome
			err  error
		)
		switch st {
		case StateTriage:
			next, out, err = c.stepTriage(ctx, m, stats)
		case StateExecute:
			next, out, err = c.stepExecuteLoop(ctx, m, stats)
		case StatePreVerify:
			next, out, err = c.stepPreVerify(ctx, m)
		case StateVerify:
			next, out, err = c.stepVerifyLoop(ctx, m, stats)
		case StateAnalysis:
			next, out, err = c.stepResumeFromAnalysis(ctx, m, stats)
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownState, st)
		}
		if err != nil {
			return "", err
		}
		if next == stateDone {
			return c.finish(ctx, m, out, stats)
		}
		st = next
	}
}

// =============================================================================
// Stages
// =============================================================================

func (c *Controller) stepTriage(ctx context.Context, m *manifest.Manifest, stats *cycleStats) (State, Outcome, error) {
	res, _, err := c.invoke(ctx, m, skill.Triage, 0)
	if err != nil {
		return stateDone, "", err
	}

	action, plan, err := decideTriage(res)
	if err != nil {
		return stateDone, "", err
	}
	if action == ActionSuspend {
		out, err := c.suspend(ctx, m, feedbackQuestions(res))
		return stateDone, out, err
	}

	if !plan.Trivial() {
		return StateExecute, "", nil
	}

	// Trivial path: one implementation pass without entering the loop.
	execRes, dir, err := c.invoke(ctx, m, skill.Execute, m.Iteration)
	if err != nil {
		return stateDone, "", err
	}
	m.Context.PreviousStatePath = artifactPath(dir, skill.ArtifactState)

	execAction, err := decideExecute(execRes, m.Iteration, m.MaxIterations())
	if err != nil {
		return stateDone, "", err
	}
	switch execAction {
	case ActionSuspend:
		out, err := c.suspend(ctx, m, feedbackQuestions(execRes))
		return stateDone, out, err
	case ActionProceed:
		stats.execSummary = execSummary(execRes)
		return stateDone, OutcomeCompleted, nil
	case ActionEscalate:
		return stateDone, OutcomeEscalated, nil
	case ActionFail:
		return stateDone, OutcomeFailed, nil
	}

	// The trivial pass wants another round: fall into the standard loop.
	m.Iteration++
	return StateExecute, "", nil
}

func (c *Controller) stepExecuteLoop(ctx context.Context, m *manifest.Manifest, stats *cycleStats) (State, Outcome, error) {
	maxIter := m.MaxIterations()
	for {
		res, dir, err := c.invoke(ctx, m, skill.Execute, m.Iteration)
		if err != nil {
			return stateDone, "", err
		}
		m.Context.PreviousStatePath = artifactPath(dir, skill.ArtifactState)

		action, err := decideExecute(res, m.Iteration, maxIter)
		if err != nil {
			return stateDone, "", err
		}

		switch action {
		case ActionSuspend:
			out, err := c.suspend(ctx, m, feedbackQuestions(res))
			return stateDone, out, err
		case ActionProceed:
			stats.execSummary = execSummary(res)
			return StatePreVerify, "", nil
		case ActionEscalate:
			return stateDone, OutcomeEscalated, nil
		case ActionFail:
			return stateDone, OutcomeFailed, nil
		case ActionRepeat:
			m.Iteration++
			if err := c.store.Save(m); err != nil {
				return stateDone, "", err
			}
		}
	}
}

func (c *Controller) stepPreVerify(ctx context.Context, m *manifest.Manifest) (State, Outcome, error) {
	res, dir, err := c.invoke(ctx, m, skill.PreVerify, 0)
	if err != nil {
		return stateDone, "", err
	}
	if _, ok := res.Output(skill.ArtifactValidationStrategy); !ok {
		return stateDone, "", fmt.Errorf("%w: %s", skill.ErrMissingArtifact, skill.ArtifactValidationStrategy)
	}

	m.Context.ValidationStrategyPath = artifactPath(dir, skill.ArtifactValidationStrategy)
	if m.Context.VerifyAttempt < 1 {
		m.Context.VerifyAttempt = 1
	}
	if err := c.store.Save(m); err != nil {
		return stateDone, "", err
	}
	return StateVerify, "", nil
}

func (c *Controller) stepVerifyLoop(ctx context.Context, m *manifest.Manifest, stats *cycleStats) (State, Outcome, error) {
	if m.Context.VerifyAttempt < 1 {
		m.Context.VerifyAttempt = 1
	}
	maxAttempts := c.settings.MaxVerifyAttempts

	for m.Context.VerifyAttempt <= maxAttempts {
		attempt := m.Context.VerifyAttempt

		res, _, err := c.invoke(ctx, m, skill.Verify, attempt)
		if err != nil {
			return stateDone, "", err
		}

		v, err := res.Verification()
		if err != nil {
			return stateDone, "", err
		}
		stats.verifyAttempts = attempt
		stats.verifySummary = v.Summary

		if err := c.appendVerifyHistory(m, attempt, res); err != nil {
			c.logger.Warn("verification history append failed",
				"task_id", m.TaskID, "error", err)
		}

		switch decideVerify(v, attempt, maxAttempts, c.settings.AnalysisMinAttempt) {
		case ActionComplete:
			return stateDone, OutcomeCompleted, nil
		case ActionEscalate:
			return stateDone, OutcomeEscalated, nil
		case ActionAnalyze:
			next, out, err := c.stepAnalysis(ctx, m, attempt, stats)
			if err != nil || next == stateDone {
				return next, out, err
			}
			// Auto-fix ran; iteration and attempt counters advanced.
		case ActionRepeat:
			m.Context.VerifyAttempt++
			if err := c.store.Save(m); err != nil {
				return stateDone, "", err
			}
		}
	}
	return stateDone, OutcomeEscalated, nil
}

func (c *Controller) stepAnalysis(ctx context.Context, m *manifest.Manifest, attempt int, stats *cycleStats) (State, Outcome, error) {
	res, dir, err := c.invoke(ctx, m, skill.DevilsAdvocate, attempt)
	if err != nil {
		return stateDone, "", err
	}

	analysis, err := res.Analysis()
	if err != nil {
		return stateDone, "", err
	}
	m.Context.AnalysisPath = artifactPath(dir, skill.ArtifactAssumptionAnalysis)

	if decideAnalysis(analysis, c.settings.ConfidenceThreshold) != ActionAutoFix {
		out, err := c.suspend(ctx, m, analysisQuestions(analysis))
		return stateDone, out, err
	}

	// The single automated remediation path: one more implementation
	// pass, then the verify loop continues.
	m.Iteration++
	return c.remediate(ctx, m, attempt, stats)
}

// stepResumeFromAnalysis handles a cycle that suspended at the
// devils-advocate stage. The user's answers direct a fix, so one
// implementation pass runs before verification continues.
func (c *Controller) stepResumeFromAnalysis(ctx context.Context, m *manifest.Manifest, stats *cycleStats) (State, Outcome, error) {
	attempt := m.Context.VerifyAttempt
	if attempt < 1 {
		attempt = 1
	}
	m.Iteration++
	return c.remediate(ctx, m, attempt, stats)
}

// remediate runs one implementation pass and hands control back to the
// verify loop at the next attempt.
func (c *Controller) remediate(ctx context.Context, m *manifest.Manifest, attempt int, stats *cycleStats) (State, Outcome, error) {
	res, dir, err := c.invoke(ctx, m, skill.Execute, m.Iteration)
	if err != nil {
		return stateDone, "", err
	}
	if fb, ok := res.Feedback(); ok && fb.HasBlockingQuestions {
		out, err := c.suspend(ctx, m, fb.Questions)
		return stateDone, out, err
	}

	m.Context.PreviousStatePath = artifactPath(dir, skill.ArtifactState)
	stats.execSummary = execSummary(res)
	m.Skill = skill.Verify.String()
	m.Context.VerifyAttempt = attempt + 1
	if err := c.store.Save(m); err != nil {
		return stateDone, "", err
	}
	return StateVerify, "", nil
}

// =============================================================================
// Invocation, Suspension, Completion
// =============================================================================

// invoke runs one skill against the task's workspace. The manifest is
// persisted before the invocation so a crash resumes at this step, and
// the invocation is recorded in the history log afterwards.
func (c *Controller) invoke(ctx context.Context, m *manifest.Manifest, name skill.Name, counter int) (*skill.Result, string, error) {
	m.Skill = name.String()
	if err := c.store.Save(m); err != nil {
		return nil, "", err
	}

	outDir := c.artifacts.StepDir(m.TaskID, name, counter)
	viewPath := filepath.Join(outDir, manifest.ManifestFile)
	if err := manifest.WriteView(m, viewPath); err != nil {
		return nil, "", err
	}

	c.event(ctx, notify.EventSkillStarted, m, name.String(), "skill started", notify.SeverityInfo, nil)
	c.logger.Info("invoking skill",
		"task_id", m.TaskID, "skill", name, "iteration", m.Iteration)

	inv := skill.Invocation{
		Skill:        name,
		ManifestPath: viewPath,
		WorkspaceDir: m.Context.WorkspacePath,
		OutputDir:    outDir,
		Timeout:      c.settings.InvokeTimeout,
	}
	res, err := skill.Invoke(ctx, c.executor, inv, c.settings.RetryDelay)
	if err != nil {
		c.event(ctx, notify.EventSkillFailed, m, name.String(), err.Error(), notify.SeverityError, nil)
		return nil, "", err
	}

	if c.history != nil {
		if herr := c.history.Record(m.TaskID, res, m.Iteration, counter, outDir); herr != nil {
			c.logger.Warn("history append failed", "task_id", m.TaskID, "error", herr)
		}
	}
	c.event(ctx, notify.EventSkillCompleted, m, name.String(), "skill completed", notify.SeverityInfo, nil)
	return res, outDir, nil
}

// suspend persists the pending questions and exits the cycle. The
// controller holds no resource across the suspension boundary beyond
// what the manifest captures.
func (c *Controller) suspend(ctx context.Context, m *manifest.Manifest, questions []string) (Outcome, error) {
	dir := c.artifacts.TaskDir(m.TaskID)
	if err := c.artifacts.Save(dir, pendingQuestionsFile, []byte(renderQuestions(questions))); err != nil {
		return "", err
	}
	m.Context.PendingQuestionsPath = filepath.Join(dir, pendingQuestionsFile)
	if err := c.store.Save(m); err != nil {
		return "", err
	}

	c.event(ctx, notify.EventAwaitingInput, m, m.Skill,
		"cycle suspended pending user input", notify.SeverityWarning,
		map[string]any{"questions": len(questions)})
	c.logger.Info("cycle suspended", "task_id", m.TaskID, "skill", m.Skill)
	return OutcomeAwaitingInput, nil
}

func (c *Controller) finish(ctx context.Context, m *manifest.Manifest, out Outcome, stats *cycleStats) (Outcome, error) {
	if !out.Terminal() {
		return out, nil
	}

	if err := c.store.Save(m); err != nil {
		return "", err
	}
	meta := artifact.TaskMeta{Outcome: string(out), EndedAt: time.Now().UTC()}
	if err := c.artifacts.WriteTaskMeta(m.TaskID, meta); err != nil {
		c.logger.Warn("task meta write failed", "task_id", m.TaskID, "error", err)
	}

	switch out {
	case OutcomeCompleted:
		c.event(ctx, notify.EventTaskCompleted, m, "", "cycle completed", notify.SeverityInfo, nil)
		c.openPullRequest(ctx, m, stats)
	case OutcomeFailed:
		c.event(ctx, notify.EventTaskFailed, m, "", "iteration budget exhausted", notify.SeverityError, nil)
	case OutcomeEscalated:
		c.event(ctx, notify.EventTaskEscalated, m, "", "cycle escalated for human follow-up", notify.SeverityWarning, nil)
	}
	c.logger.Info("cycle finished", "task_id", m.TaskID, "outcome", out)
	return out, nil
}

// openPullRequest opens a PR for the completed task. Failure to open
// the PR never un-completes the task.
func (c *Controller) openPullRequest(ctx context.Context, m *manifest.Manifest, stats *cycleStats) {
	if c.prs == nil || m.Git.PRNumber != 0 {
		return
	}

	opts := pr.NewBuilder(m.Task.Title).
		WithTask(m.TaskID).
		WithHead(m.Git.TargetBranch).
		WithBase(m.Git.MainBranch).
		WithCycleSummary(stats.execSummary, m.Iteration, stats.verifyAttempts, stats.verifySummary).
		Build()

	created, err := c.prs.CreatePR(ctx, opts)
	if err != nil {
		c.logger.Warn("pull request creation failed", "task_id", m.TaskID, "error", err)
		return
	}

	m.Git.PRNumber = created.ID
	if err := c.store.Save(m); err != nil {
		c.logger.Warn("manifest save after PR failed", "task_id", m.TaskID, "error", err)
	}
	c.event(ctx, notify.EventPRCreated, m, "", created.HTMLURL, notify.SeverityInfo,
		map[string]any{"pr_number": created.ID})
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Controller) event(ctx context.Context, t notify.EventType, m *manifest.Manifest, skillName, msg, severity string, meta map[string]any) {
	if c.notifier == nil {
		return
	}
	err := c.notifier.Notify(ctx, notify.Event{
		Type:      t,
		TaskID:    m.TaskID,
		Skill:     skillName,
		Iteration: m.Iteration,
		Message:   msg,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
	if err != nil {
		c.logger.Warn("notification failed", "task_id", m.TaskID, "error", err)
	}
}

// appendVerifyHistory accumulates every verification attempt into one
// document the devils-advocate skill reads.
func (c *Controller) appendVerifyHistory(m *manifest.Manifest, attempt int, res *skill.Result) error {
	raw := ""
	if a, ok := res.Output(skill.ArtifactVerificationResults); ok {
		raw = a.Raw
	}

	existing, err := c.artifacts.Load(m.TaskID, verifyHistoryFile)
	if err != nil && !errors.Is(err, artifact.ErrNotFound) {
		return err
	}

	var b strings.Builder
	b.Write(existing)
	fmt.Fprintf(&b, "## Attempt %d\n\n%s\n\n", attempt, strings.TrimSpace(raw))

	dir := c.artifacts.TaskDir(m.TaskID)
	if err := c.artifacts.Save(dir, verifyHistoryFile, []byte(b.String())); err != nil {
		return err
	}
	m.Context.VerificationHistoryPath = filepath.Join(dir, verifyHistoryFile)
	return nil
}

// artifactPath returns the on-disk location of a named step artifact,
// defaulting to the .yaml spelling when the file is not present.
func artifactPath(dir, name string) string {
	if p, ok := skill.FindArtifact(dir, name); ok {
		return p
	}
	return filepath.Join(dir, name+".yaml")
}

func execSummary(res *skill.Result) string {
	state, err := res.State()
	if err != nil {
		return ""
	}
	return state.Summary
}

func feedbackQuestions(res *skill.Result) []string {
	if fb, ok := res.Feedback(); ok {
		return fb.Questions
	}
	return nil
}

func analysisQuestions(a *skill.Analysis) []string {
	q := fmt.Sprintf(
		"Verification keeps failing (root cause found: %v, confidence %.2f, recommended action %q). How should the task proceed?",
		a.RootCauseFound, a.Confidence, a.RecommendedAction)
	return []string{q}
}

func renderQuestions(questions []string) string {
	var b strings.Builder
	b.WriteString("# Pending Questions\n\n")
	if len(questions) == 0 {
		b.WriteString("The cycle needs a human decision; see the latest artifacts for details.\n")
		return b.String()
	}
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return b.String()
}
