package skill

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/randalmurphal/skillcycle/prompt"
)

// CLI executor errors
var (
	// ErrCLINotFound indicates the claude CLI binary was not found.
	ErrCLINotFound = errors.New("claude CLI not found")
)

// PromptSource renders the prompt for a skill. Implemented by
// prompt.Loader.
type PromptSource interface {
	LoadWithVars(name string, vars map[string]any) (string, error)
}

// CLIExecutor runs each skill as a claude CLI session in the
// workspace directory instead of a container. The rendered skill
// prompt instructs the session to write its artifacts under the
// output directory.
type CLIExecutor struct {
	binaryPath string
	prompts    PromptSource
	timeout    time.Duration
	maxTurns   int
}

// CLIConfig configures the CLI executor.
type CLIConfig struct {
	BinaryPath string        // Path to claude binary (default: "claude")
	Prompts    PromptSource  // Prompt source (default: embedded prompt loader)
	Timeout    time.Duration // Default timeout (default: DefaultTimeout)
	MaxTurns   int           // Default max turns (default: 25)
}

// NewCLIExecutor creates a CLI-backed skill executor.
// Returns ErrCLINotFound if the claude binary is not installed.
func NewCLIExecutor(cfg CLIConfig) (*CLIExecutor, error) {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = "claude"
	}
	if _, err := exec.LookPath(binaryPath); err != nil {
		return nil, ErrCLINotFound
	}

	prompts := cfg.Prompts
	if prompts == nil {
		prompts = prompt.NewLoader(".")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 25
	}

	return &CLIExecutor{
		binaryPath: binaryPath,
		prompts:    prompts,
		timeout:    timeout,
		maxTurns:   maxTurns,
	}, nil
}

// Execute runs the skill prompt in a claude session and collects the
// artifacts it wrote.
func (e *CLIExecutor) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	manifestData, err := os.ReadFile(inv.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest view: %v", ErrInvocationFailed, err)
	}

	prompt, err := e.prompts.LoadWithVars(string(inv.Skill), map[string]any{
		"Skill":     string(inv.Skill),
		"Manifest":  string(manifestData),
		"OutputDir": inv.OutputDir,
		"Workspace": inv.WorkspaceDir,
		"Required":  inv.Skill.RequiredOutputs(),
		"Optional":  inv.Skill.OptionalOutputs(),
		"Model":     string(SelectModel(inv.Skill)),
		"Extra":     inv.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: render prompt: %v", ErrInvocationFailed, err)
	}

	timeout := inv.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--print", "--output-format", "json",
		"--model", string(SelectModel(inv.Skill)),
		"--max-turns", fmt.Sprintf("%d", e.maxTurns),
		"-p", prompt,
	}

	cmd := exec.CommandContext(runCtx, e.binaryPath, args...)
	cmd.Dir = inv.WorkspaceDir
	cmd.Env = append(os.Environ(), envSlice(inv.Env)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: skill %s after %s", ErrInvocationTimeout, inv.Skill, timeout)
		}
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return nil, fmt.Errorf("%w: skill %s: %s", ErrInvocationFailed, inv.Skill, truncate(stderrStr, 2048))
		}
		return nil, fmt.Errorf("%w: skill %s: %v", ErrInvocationFailed, inv.Skill, runErr)
	}

	outputs, err := CollectOutputs(inv.OutputDir, inv.Skill)
	if err != nil {
		return nil, err
	}

	return &Result{
		Skill:    inv.Skill,
		Status:   StatusSuccess,
		Duration: duration,
		Outputs:  outputs,
	}, nil
}
