package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store errors.
var (
	// ErrNotFound indicates no manifest exists for the task.
	ErrNotFound = errors.New("manifest not found")
)

// ManifestFile is the well-known per-task manifest filename.
const ManifestFile = "task-input.yaml"

// Store persists manifests. The controller reads and writes through
// this interface only, so the state machine stays free of I/O.
type Store interface {
	// Load reads the manifest for a task.
	// Returns ErrNotFound if the task has no manifest.
	Load(taskID string) (*Manifest, error)

	// Save durably writes the manifest. The write is atomic relative
	// to the controller's own sequence of steps.
	Save(m *Manifest) error

	// Path returns the location of a task's manifest document.
	Path(taskID string) string
}

// FileStore stores one manifest per task under a base directory, at
// <base>/<task_id>/task-input.yaml.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file-backed manifest store.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the manifest location for a task.
func (s *FileStore) Path(taskID string) string {
	return filepath.Join(s.baseDir, taskID, ManifestFile)
}

// Load reads and parses a task's manifest.
func (s *FileStore) Load(taskID string) (*Manifest, error) {
	data, err := os.ReadFile(s.Path(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Save validates and writes the manifest. It writes to a temp file in
// the task directory and renames it into place so a crashed write
// never leaves a truncated manifest behind.
func (s *FileStore) Save(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	path := s.Path(m.TaskID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create task dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ManifestFile+".*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close manifest: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// WriteView writes a step-scoped copy of the manifest to path.
// Views are handed to skill executors; the canonical manifest stays
// under the store's control.
func WriteView(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest view: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create view dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest view: %w", err)
	}
	return nil
}
