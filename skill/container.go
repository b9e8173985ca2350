package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single skill invocation.
const DefaultTimeout = 30 * time.Minute

// DefaultImagePrefix is prepended to the skill name to form the
// container image reference.
const DefaultImagePrefix = "claude-skill-"

// ContainerExecutor runs each skill in its own container. The
// workspace is mounted read-write, the manifest view read-only, and
// artifacts are collected from the mounted output directory after the
// container exits.
type ContainerExecutor struct {
	// Binary is the container runtime binary. Defaults to "docker".
	Binary string

	// ImagePrefix forms the image reference as prefix + skill name.
	ImagePrefix string

	// ImageTag is appended to the image reference when set.
	ImageTag string

	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewContainerExecutor returns an executor with standard settings.
func NewContainerExecutor() *ContainerExecutor {
	return &ContainerExecutor{
		Binary:      "docker",
		ImagePrefix: DefaultImagePrefix,
		Timeout:     DefaultTimeout,
	}
}

// Image returns the container image reference for a skill.
func (e *ContainerExecutor) Image(name Name) string {
	prefix := e.ImagePrefix
	if prefix == "" {
		prefix = DefaultImagePrefix
	}
	ref := prefix + sanitizeName(name)
	if e.ImageTag != "" {
		ref += ":" + e.ImageTag
	}
	return ref
}

// Execute runs the skill container to completion and collects its
// output artifacts.
func (e *ContainerExecutor) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	timeout := inv.Timeout
	if timeout == 0 {
		timeout = e.Timeout
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := e.buildArgs(inv)
	binary := e.Binary
	if binary == "" {
		binary = "docker"
	}

	slog.Debug("running skill container",
		"skill", inv.Skill,
		"image", e.Image(inv.Skill),
		"timeout", timeout)

	start := time.Now()
	cmd := exec.CommandContext(runCtx, binary, args...)
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: skill %s after %s", ErrInvocationTimeout, inv.Skill, timeout)
		}
		return nil, fmt.Errorf("%w: skill %s: %v: %s", ErrInvocationFailed, inv.Skill, err, truncate(string(output), 2048))
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

func (e *ContainerExecutor) buildArgs(inv Invocation) []string {
	args := []string{"run", "--rm",
		"-v", inv.WorkspaceDir + ":/workspace",
		"-v", inv.ManifestPath + ":/input/task-input.yaml:ro",
		"-v", inv.OutputDir + ":/output",
		"-e", "SKILL=" + string(inv.Skill),
	}
	for _, kv := range envSlice(inv.Env) {
		args = append(args, "-e", kv)
	}
	args = append(args, e.Image(inv.Skill))
	return args
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
