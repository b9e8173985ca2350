package artifact

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/randalmurphal/skillcycle/skill"
)

// Artifact errors
var (
	ErrNotFound = errors.New("artifact not found")
)

// Config holds configuration for artifact storage.
type Config struct {
	BaseDir       string // Base directory for storage (default: ".skillcycle")
	CompressAbove int64  // Compress artifacts larger than this (default: 10KB)
}

// Store persists skill outputs per task, one directory per step. Large
// text artifacts are gzip-compressed transparently.
type Store struct {
	baseDir       string
	compressAbove int64
}

// Info contains metadata about a stored artifact.
type Info struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewStore creates an artifact store with the given config.
func NewStore(cfg Config) *Store {
	if cfg.BaseDir == "" {
		cfg.BaseDir = ".skillcycle"
	}
	if cfg.CompressAbove == 0 {
		cfg.CompressAbove = 10 * 1024
	}
	return &Store{
		baseDir:       cfg.BaseDir,
		compressAbove: cfg.CompressAbove,
	}
}

// BaseDir returns the base directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// TaskDir returns the artifact directory for a task.
func (s *Store) TaskDir(taskID string) string {
	return filepath.Join(s.baseDir, "tasks", taskID)
}

// TriageDir returns the directory for the task's triage step.
func (s *Store) TriageDir(taskID string) string {
	return filepath.Join(s.TaskDir(taskID), "triage")
}

// ExecuteDir returns the directory for one execute iteration.
func (s *Store) ExecuteDir(taskID string, iteration int) string {
	return filepath.Join(s.TaskDir(taskID), fmt.Sprintf("execute-%03d", iteration))
}

// PreVerifyDir returns the directory for the pre-verify step.
func (s *Store) PreVerifyDir(taskID string) string {
	return filepath.Join(s.TaskDir(taskID), "pre-verify")
}

// VerifyDir returns the directory for one verification attempt.
func (s *Store) VerifyDir(taskID string, attempt int) string {
	return filepath.Join(s.TaskDir(taskID), fmt.Sprintf("verify-%03d", attempt))
}

// AnalysisDir returns the directory for a devils-advocate step keyed
// by the verification attempt that triggered it.
func (s *Store) AnalysisDir(taskID string, attempt int) string {
	return filepath.Join(s.TaskDir(taskID), fmt.Sprintf("analysis-%03d", attempt))
}

// StepDir returns the directory for a skill step. Execute and verify
// steps are keyed by their counter.
func (s *Store) StepDir(taskID string, name skill.Name, counter int) string {
	switch name {
	case skill.Triage:
		return s.TriageDir(taskID)
	case skill.Execute:
		return s.ExecuteDir(taskID, counter)
	case skill.PreVerify:
		return s.PreVerifyDir(taskID)
	case skill.Verify:
		return s.VerifyDir(taskID, counter)
	case skill.DevilsAdvocate:
		return s.AnalysisDir(taskID, counter)
	}
	return filepath.Join(s.TaskDir(taskID), string(name))
}

// SaveResult persists every artifact of a skill result under the step
// directory and returns that directory.
func (s *Store) SaveResult(taskID string, counter int, result *skill.Result) (string, error) {
	dir := s.StepDir(taskID, result.Skill, counter)
	for _, a := range result.Outputs {
		ext := ".md"
		if a.Structured() {
			ext = ".yaml"
		}
		if err := s.save(filepath.Join(dir, a.Name+ext), []byte(a.Raw)); err != nil {
			return "", fmt.Errorf("save artifact %s: %w", a.Name, err)
		}
	}
	return dir, nil
}

// Save stores one artifact under the step directory.
func (s *Store) Save(dir, name string, data []byte) error {
	return s.save(filepath.Join(dir, name), data)
}

// Load reads an artifact by path relative to the task directory.
// Compression is transparent.
func (s *Store) Load(taskID, relPath string) ([]byte, error) {
	path := filepath.Join(s.TaskDir(taskID), relPath)

	if data, err := loadCompressed(path + ".gz"); err == nil {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Has reports whether an artifact exists at the path relative to the
// task directory.
func (s *Store) Has(taskID, relPath string) bool {
	path := filepath.Join(s.TaskDir(taskID), relPath)
	if _, err := os.Stat(path + ".gz"); err == nil {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// List returns all artifacts stored under one step directory.
func (s *Store) List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var artifacts []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		compressed := strings.HasSuffix(name, ".gz")
		if compressed {
			name = strings.TrimSuffix(name, ".gz")
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		artifacts = append(artifacts, Info{
			Name:       name,
			Size:       info.Size(),
			Compressed: compressed,
			CreatedAt:  info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

func (s *Store) save(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if int64(len(data)) >= s.compressAbove {
		os.Remove(path)
		return saveCompressed(path+".gz", data)
	}

	os.Remove(path + ".gz")
	return os.WriteFile(path, data, 0o644)
}

func saveCompressed(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	_, err = gz.Write(data)
	return err
}

func loadCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}
