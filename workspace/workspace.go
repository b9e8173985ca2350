package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphal/skillcycle/manifest"
)

// Workspace errors
var (
	// ErrNoRepoURL indicates the manifest has no repository to clone.
	ErrNoRepoURL = errors.New("manifest has no repository URL")

	// ErrNotGitRepo indicates the recorded workspace path is not a
	// usable git checkout.
	ErrNotGitRepo = errors.New("workspace is not a git repository")
)

// Workspace is a provisioned git checkout bound to one task.
type Workspace struct {
	Path   string // Absolute checkout path
	Branch string // Checked-out task branch
	Token  string // Validity token binding task, branch, and path
}

// Provisioner prepares a workspace for a task. On resume it decides
// between reusing the recorded checkout and provisioning a fresh one.
type Provisioner interface {
	Provision(m *manifest.Manifest) (*Workspace, error)
}

// GitProvisioner provisions task workspaces by cloning the manifest's
// repository. Reuse of a recorded workspace requires a verifiable
// token and an intact checkout; anything less falls back to a fresh
// clone of the task branch.
type GitProvisioner struct {
	root   string
	runner CommandRunner
	signer *manifest.TokenSigner
}

// Option configures GitProvisioner.
type Option func(*GitProvisioner)

// WithRunner sets a custom command runner. Used by tests.
func WithRunner(runner CommandRunner) Option {
	return func(p *GitProvisioner) {
		p.runner = runner
	}
}

// NewGitProvisioner creates a provisioner that places checkouts under
// root, one directory per task.
func NewGitProvisioner(root string, signer *manifest.TokenSigner, opts ...Option) (*GitProvisioner, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if signer == nil {
		return nil, errors.New("token signer is required")
	}

	p := &GitProvisioner{
		root:   absRoot,
		runner: NewExecRunner(),
		signer: signer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Path returns the workspace path for a task.
func (p *GitProvisioner) Path(taskID string) string {
	return filepath.Join(p.root, taskID)
}

// Provision returns a workspace for the task. A recorded workspace is
// reused only when its token verifies against the task, branch, and
// path, and the checkout is still intact. Otherwise the task branch is
// provisioned fresh from the repository.
func (p *GitProvisioner) Provision(m *manifest.Manifest) (*Workspace, error) {
	branch := m.Git.TargetBranch

	if m.Context.WorkspacePath != "" && m.Context.WorkspaceToken != "" {
		err := p.signer.Verify(m.Context.WorkspaceToken, m.TaskID, branch, m.Context.WorkspacePath)
		if err == nil {
			if p.intact(m.Context.WorkspacePath, branch) {
				return &Workspace{
					Path:   m.Context.WorkspacePath,
					Branch: branch,
					Token:  m.Context.WorkspaceToken,
				}, nil
			}
			slog.Warn("recorded workspace no longer intact, provisioning fresh",
				"task_id", m.TaskID,
				"path", m.Context.WorkspacePath)
		} else {
			slog.Warn("workspace token rejected, provisioning fresh",
				"task_id", m.TaskID,
				"error", err)
		}
	}

	return p.provisionFresh(m, branch)
}

// intact reports whether path is still a git checkout on the expected
// branch.
func (p *GitProvisioner) intact(path, branch string) bool {
	if _, err := p.runner.Run(path, "git", "rev-parse", "--git-dir"); err != nil {
		return false
	}
	current, err := p.runner.Run(path, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return false
	}
	return current == branch
}

// provisionFresh clones the repository and checks out the task branch,
// creating it from the main branch when it does not exist yet on the
// remote. The previous checkout for the task, if any, is replaced.
func (p *GitProvisioner) provisionFresh(m *manifest.Manifest, branch string) (*Workspace, error) {
	if m.Git.RepoURL == "" {
		return nil, ErrNoRepoURL
	}

	path := p.Path(m.TaskID)
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("clear workspace %s: %w", path, err)
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	if _, err := p.runner.Run(p.root, "git", "clone", m.Git.RepoURL, path); err != nil {
		return nil, fmt.Errorf("clone %s: %w", m.Git.RepoURL, err)
	}

	// Work resumes from the task branch when one already exists; the
	// main branch is only the base for brand-new branches.
	if p.remoteBranchExists(path, branch) {
		if _, err := p.runner.Run(path, "git", "checkout", branch); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", branch, err)
		}
	} else {
		if _, err := p.runner.Run(path, "git", "checkout", m.Git.MainBranch); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", m.Git.MainBranch, err)
		}
		if _, err := p.runner.Run(path, "git", "checkout", "-b", branch); err != nil {
			return nil, fmt.Errorf("create branch %s: %w", branch, err)
		}
	}

	token, err := p.signer.Sign(m.TaskID, branch, path)
	if err != nil {
		return nil, fmt.Errorf("sign workspace token: %w", err)
	}

	slog.Info("workspace provisioned",
		"task_id", m.TaskID,
		"path", path,
		"branch", branch)

	return &Workspace{Path: path, Branch: branch, Token: token}, nil
}

func (p *GitProvisioner) remoteBranchExists(path, branch string) bool {
	out, err := p.runner.Run(path, "git", "ls-remote", "--heads", "origin", branch)
	return err == nil && out != ""
}
