package manifest

import (
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Manifest Sections
// =============================================================================

// GitInfo describes the git context for a task.
// Immutable once the workspace has been provisioned.
type GitInfo struct {
	RepoURL      string `yaml:"repo_url,omitempty"`
	TargetBranch string `yaml:"target_branch"`
	MainBranch   string `yaml:"main_branch"`
	PRNumber     int    `yaml:"pr_number,omitempty"`
}

// TaskInfo is the caller-supplied task description. Immutable.
type TaskInfo struct {
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	Priority            string   `yaml:"priority,omitempty"`
	Labels              []string `yaml:"labels,omitempty"`
	EstimatedComplexity string   `yaml:"estimated_complexity,omitempty"`
}

// Resources holds caller-supplied execution bounds.
type Resources struct {
	SkillsAvailable []string `yaml:"skills_available,omitempty"`
	MaxIterations   int      `yaml:"max_iterations,omitempty"`
}

// Metadata records task provenance. Immutable.
type Metadata struct {
	CreatedAt   time.Time `yaml:"created_at"`
	TriggeredBy string    `yaml:"triggered_by,omitempty"`
}

// Context carries the artifact references accumulated by prior steps.
// Fields are optional per stage; later steps read keys written by
// earlier ones. Extra preserves keys this implementation does not
// model so the manifest round-trips losslessly.
type Context struct {
	WorkspacePath           string `yaml:"workspace_path,omitempty"`
	WorkspaceToken          string `yaml:"workspace_token,omitempty"`
	PreviousStatePath       string `yaml:"previous_state_path,omitempty"`
	ValidationStrategyPath  string `yaml:"validation_strategy_path,omitempty"`
	VerificationHistoryPath string `yaml:"verification_history_path,omitempty"`
	AnalysisPath            string `yaml:"devils_advocate_analysis_path,omitempty"`
	UserResponsesPath       string `yaml:"user_responses_path,omitempty"`
	PendingQuestionsPath    string `yaml:"pending_questions_path,omitempty"`
	VerifyAttempt           int    `yaml:"verify_attempt,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// =============================================================================
// Manifest
// =============================================================================

// Manifest is the durable per-task document threaded through every
// step of a cycle. It is the single source of truth for the task.
type Manifest struct {
	TaskID    string    `yaml:"task_id"`
	Iteration int       `yaml:"iteration"`
	Skill     string    `yaml:"skill,omitempty"`
	Git       GitInfo   `yaml:"git"`
	Task      TaskInfo  `yaml:"task"`
	Context   Context   `yaml:"context"`
	Resources Resources `yaml:"resources"`
	Metadata  Metadata  `yaml:"metadata"`
}

// DefaultMaxIterations bounds the execute loop when the caller does
// not supply a limit.
const DefaultMaxIterations = 10

// New creates a manifest for a fresh task at iteration 1.
func New(task TaskInfo, git GitInfo) *Manifest {
	if git.MainBranch == "" {
		git.MainBranch = "main"
	}
	return &Manifest{
		TaskID:    NewTaskID(),
		Iteration: 1,
		Skill:     "triage",
		Git:       git,
		Task:      task,
		Resources: Resources{
			MaxIterations: DefaultMaxIterations,
		},
		Metadata: Metadata{
			CreatedAt:   time.Now().UTC(),
			TriggeredBy: "skillcycle",
		},
	}
}

// WithTaskID sets a caller-chosen task ID.
func (m Manifest) WithTaskID(id string) Manifest {
	m.TaskID = id
	return m
}

// WithResources sets caller-supplied resource bounds.
func (m Manifest) WithResources(r Resources) Manifest {
	if r.MaxIterations == 0 {
		r.MaxIterations = DefaultMaxIterations
	}
	m.Resources = r
	return m
}

// WithTriggeredBy records what triggered the task.
func (m Manifest) WithTriggeredBy(source string) Manifest {
	m.Metadata.TriggeredBy = source
	return m
}

// MaxIterations returns the execute-loop bound, applying the default
// when the caller supplied none.
func (m *Manifest) MaxIterations() int {
	if m.Resources.MaxIterations > 0 {
		return m.Resources.MaxIterations
	}
	return DefaultMaxIterations
}

// Validate checks the fields every step depends on.
func (m *Manifest) Validate() error {
	if m.TaskID == "" {
		return fmt.Errorf("task_id required")
	}
	if m.Iteration < 1 {
		return fmt.Errorf("iteration must be >= 1, got %d", m.Iteration)
	}
	if m.Git.TargetBranch == "" {
		return fmt.Errorf("git.target_branch required")
	}
	if m.Git.MainBranch == "" {
		return fmt.Errorf("git.main_branch required")
	}
	if m.Task.Title == "" {
		return fmt.Errorf("task.title required")
	}
	return nil
}

// taskIDAlphabet keeps task IDs filesystem- and branch-safe.
const taskIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewTaskID generates an opaque task identifier.
func NewTaskID() string {
	id, err := nanoid.Generate(taskIDAlphabet, 12)
	if err != nil {
		// Fallback to a timestamp-based ID on entropy failure
		return fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	return "task-" + id
}
