package skill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Invocation describes one skill run. The manifest view is the only
// input channel; the output directory is the only output channel.
type Invocation struct {
	Skill        Name
	ManifestPath string            // Manifest view handed to the skill
	WorkspaceDir string            // Checked-out working tree
	OutputDir    string            // Directory the skill writes artifacts into
	Env          map[string]string // Extra environment for the skill process
	Timeout      time.Duration     // Zero means the executor default
}

// Executor runs a single skill in isolation and returns its result.
// Implementations own process lifecycle and artifact collection but
// never interpret artifact content.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (*Result, error)
}

// artifact file extensions tried in order when collecting outputs.
var artifactExtensions = []string{".yaml", ".yml", ".md", ".txt"}

// CollectOutputs reads the skill's artifacts from dir. Required
// artifacts that are absent produce ErrMissingArtifact; optional ones
// are picked up when present. YAML files are parsed into documents,
// everything else is kept verbatim.
func CollectOutputs(dir string, name Name) (map[string]Artifact, error) {
	outputs := make(map[string]Artifact)

	for _, required := range name.RequiredOutputs() {
		a, ok, err := readArtifact(dir, required)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s (skill %s)", ErrMissingArtifact, required, name)
		}
		outputs[required] = a
	}

	for _, optional := range name.OptionalOutputs() {
		a, ok, err := readArtifact(dir, optional)
		if err != nil {
			return nil, err
		}
		if ok {
			outputs[optional] = a
		}
	}

	return outputs, nil
}

// FindArtifact returns the on-disk path of a named artifact in dir,
// trying the known extensions in order.
func FindArtifact(dir, name string) (string, bool) {
	for _, ext := range artifactExtensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func readArtifact(dir, name string) (Artifact, bool, error) {
	for _, ext := range artifactExtensions {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Artifact{}, false, fmt.Errorf("read artifact %s: %w", name, err)
		}

		a := Artifact{Name: name, Raw: string(data)}
		if ext == ".yaml" || ext == ".yml" {
			var doc map[string]any
			if err := yaml.Unmarshal(data, &doc); err == nil && doc != nil {
				a.Doc = doc
			}
		}
		return a, true, nil
	}
	return Artifact{}, false, nil
}

// envSlice flattens inv.Env into KEY=VALUE form for exec.
func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// sanitizeName converts a skill name to a token safe for file and
// container names.
func sanitizeName(n Name) string {
	return strings.ReplaceAll(string(n), "/", "-")
}
