package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/randalmurphal/skillcycle/skill"
)

// History errors
var (
	ErrNoHistory = errors.New("no history for task")
)

// Entry records one skill invocation in a task's history.
type Entry struct {
	Skill       skill.Name    `json:"skill"`
	Status      skill.Status  `json:"status"`
	Iteration   int           `json:"iteration"`
	Attempt     int           `json:"attempt,omitempty"`
	Duration    time.Duration `json:"duration"`
	Outputs     []string      `json:"outputs,omitempty"`
	ArtifactDir string        `json:"artifactDir,omitempty"`
	At          time.Time     `json:"at"`
}

// Log is an append-only record of skill invocations per task. Entries
// are stored as a JSON array, one file per task.
type Log struct {
	baseDir string
	mu      sync.Mutex
}

// NewLog creates a file-backed invocation log under baseDir.
func NewLog(baseDir string) (*Log, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Log{baseDir: baseDir}, nil
}

// Path returns the history file for a task.
func (l *Log) Path(taskID string) string {
	return filepath.Join(l.baseDir, taskID+".json")
}

// Append records one invocation. The timestamp is set when absent.
func (l *Log) Append(taskID string, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	entries, err := l.load(taskID)
	if err != nil && !errors.Is(err, ErrNoHistory) {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmp := l.Path(taskID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.Path(taskID))
}

// Record appends an entry built from a skill result.
func (l *Log) Record(taskID string, result *skill.Result, iteration, attempt int, artifactDir string) error {
	names := make([]string, 0, len(result.Outputs))
	for name := range result.Outputs {
		names = append(names, name)
	}
	return l.Append(taskID, Entry{
		Skill:       result.Skill,
		Status:      result.Status,
		Iteration:   iteration,
		Attempt:     attempt,
		Duration:    result.Duration,
		Outputs:     names,
		ArtifactDir: artifactDir,
	})
}

// List returns all recorded invocations for a task in order.
func (l *Log) List(taskID string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(taskID)
}

// Last returns the most recent entry for a task.
func (l *Log) Last(taskID string) (*Entry, error) {
	entries, err := l.List(taskID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoHistory
	}
	return &entries[len(entries)-1], nil
}

// CountSkill returns how many times a skill has run for the task.
func (l *Log) CountSkill(taskID string, name skill.Name) (int, error) {
	entries, err := l.List(taskID)
	if errors.Is(err, ErrNoHistory) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.Skill == name {
			count++
		}
	}
	return count, nil
}

func (l *Log) load(taskID string) ([]Entry, error) {
	data, err := os.ReadFile(l.Path(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoHistory
		}
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse history for %s: %w", taskID, err)
	}
	return entries, nil
}
