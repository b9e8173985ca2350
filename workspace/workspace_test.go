package workspace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/skillcycle/manifest"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testManifest() *manifest.Manifest {
	m := manifest.New(
		manifest.TaskInfo{Title: "Add retry logic"},
		manifest.GitInfo{
			RepoURL:      "https://example.com/repo.git",
			TargetBranch: "feature/retry",
			MainBranch:   "main",
		},
	)
	m.TaskID = "task-ws-test"
	return m
}

func newTestProvisioner(t *testing.T, runner CommandRunner) *GitProvisioner {
	t.Helper()
	signer, err := manifest.NewTokenSigner(testSecret)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	p, err := NewGitProvisioner(t.TempDir(), signer, WithRunner(runner))
	if err != nil {
		t.Fatalf("NewGitProvisioner: %v", err)
	}
	return p
}

func TestProvision_FreshCloneExistingBranch(t *testing.T) {
	runner := NewMockRunner()
	runner.OnAnyCommand().Return("", nil)
	runner.OnCommand("git", "ls-remote", "--heads", "origin", "feature/retry").
		Return("abc123\trefs/heads/feature/retry", nil)

	p := newTestProvisioner(t, runner)
	m := testManifest()

	ws, err := p.Provision(m)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if ws.Branch != "feature/retry" {
		t.Errorf("Branch = %q", ws.Branch)
	}
	if ws.Path != p.Path(m.TaskID) {
		t.Errorf("Path = %q, want %q", ws.Path, p.Path(m.TaskID))
	}
	if ws.Token == "" {
		t.Error("Token should be issued")
	}
	if !runner.WasCalled("git", "clone") {
		t.Error("should clone the repository")
	}
	if !runner.WasCalled("git", "checkout", "feature/retry") {
		t.Error("should check out the existing task branch")
	}
	if runner.WasCalled("git", "checkout", "-b") {
		t.Error("should not create a branch that already exists on the remote")
	}
}

func TestProvision_FreshCloneNewBranch(t *testing.T) {
	runner := NewMockRunner()
	runner.OnAnyCommand().Return("", nil)
	runner.OnCommand("git", "ls-remote", "--heads", "origin", "feature/retry").Return("", nil)

	p := newTestProvisioner(t, runner)
	ws, err := p.Provision(testManifest())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if !runner.WasCalled("git", "checkout", "main") {
		t.Error("new branch should start from the main branch")
	}
	if !runner.WasCalled("git", "checkout", "-b", "feature/retry") {
		t.Error("should create the task branch")
	}
	if ws.Branch != "feature/retry" {
		t.Errorf("Branch = %q", ws.Branch)
	}
}

func TestProvision_NoRepoURL(t *testing.T) {
	p := newTestProvisioner(t, NewMockRunner())
	m := testManifest()
	m.Git.RepoURL = ""

	_, err := p.Provision(m)
	if !errors.Is(err, ErrNoRepoURL) {
		t.Errorf("err = %v, want ErrNoRepoURL", err)
	}
}

func TestProvision_ReuseValidWorkspace(t *testing.T) {
	runner := NewMockRunner()
	p := newTestProvisioner(t, runner)
	m := testManifest()

	path := filepath.Join(t.TempDir(), "existing")
	signer, _ := manifest.NewTokenSigner(testSecret)
	token, err := signer.Sign(m.TaskID, m.Git.TargetBranch, path)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	m.Context.WorkspacePath = path
	m.Context.WorkspaceToken = token

	runner.OnCommand("git", "rev-parse", "--git-dir").Return(".git", nil)
	runner.OnCommand("git", "rev-parse", "--abbrev-ref", "HEAD").Return("feature/retry", nil)

	ws, err := p.Provision(m)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if ws.Path != path {
		t.Errorf("Path = %q, want reuse of %q", ws.Path, path)
	}
	if runner.WasCalled("git", "clone") {
		t.Error("valid workspace should not be re-cloned")
	}
}

func TestProvision_InvalidTokenReclones(t *testing.T) {
	runner := NewMockRunner()
	runner.OnAnyCommand().Return("", nil)
	runner.OnCommand("git", "ls-remote", "--heads", "origin", "feature/retry").
		Return("abc123\trefs/heads/feature/retry", nil)

	p := newTestProvisioner(t, runner)
	m := testManifest()
	m.Context.WorkspacePath = "/somewhere/stale"
	m.Context.WorkspaceToken = "not-a-valid-token"

	ws, err := p.Provision(m)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !runner.WasCalled("git", "clone") {
		t.Error("invalid token should force a fresh clone")
	}
	if ws.Path == "/somewhere/stale" {
		t.Error("stale path should not be reused")
	}
}

func TestProvision_BrokenCheckoutReclones(t *testing.T) {
	runner := NewMockRunner()
	runner.OnAnyCommand().Return("", nil)
	runner.OnCommand("git", "rev-parse", "--git-dir").
		Return("", errors.New("not a git repository"))
	runner.OnCommand("git", "ls-remote", "--heads", "origin", "feature/retry").
		Return("abc123\trefs/heads/feature/retry", nil)

	p := newTestProvisioner(t, runner)
	m := testManifest()

	path := filepath.Join(t.TempDir(), "broken")
	signer, _ := manifest.NewTokenSigner(testSecret)
	token, _ := signer.Sign(m.TaskID, m.Git.TargetBranch, path)
	m.Context.WorkspacePath = path
	m.Context.WorkspaceToken = token

	_, err := p.Provision(m)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !runner.WasCalled("git", "clone") {
		t.Error("broken checkout should force a fresh clone")
	}
}
