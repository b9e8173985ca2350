package artifact

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionConfig defines the retention policy for task artifacts.
type RetentionConfig struct {
	RetentionDays        int  // Days to keep finished task directories
	ArchiveAfterDays     int  // Days before archiving
	ArchiveRetentionDays int  // Days to keep archived tasks
	KeepUnresolved       bool // Keep failed and escalated tasks longer
	KeepMinTasks         int  // Minimum tasks to keep regardless of age
}

// DefaultRetentionConfig returns sensible defaults.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:        30,
		ArchiveAfterDays:     7,
		ArchiveRetentionDays: 90,
		KeepUnresolved:       true,
		KeepMinTasks:         100,
	}
}

// TaskMeta records the terminal outcome of a task. The controller
// writes it next to the task's artifacts; retention decisions read it.
type TaskMeta struct {
	Outcome string    `json:"outcome"`
	EndedAt time.Time `json:"endedAt"`
}

// TaskMetaFile is the filename of the outcome record in a task dir.
const TaskMetaFile = "task-meta.json"

// WriteTaskMeta records the terminal outcome for a task.
func (s *Store) WriteTaskMeta(taskID string, meta TaskMeta) error {
	dir := s.TaskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, TaskMetaFile), data, 0o644)
}

// LifecycleManager handles artifact retention and archival.
type LifecycleManager struct {
	baseDir string
	config  RetentionConfig
}

// NewLifecycleManager creates a lifecycle manager over the same base
// directory as the Store.
func NewLifecycleManager(baseDir string, config RetentionConfig) *LifecycleManager {
	return &LifecycleManager{
		baseDir: baseDir,
		config:  config,
	}
}

// CleanupResult summarizes cleanup actions.
type CleanupResult struct {
	Archived   []string `json:"archived"`
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

// Cleanup applies the retention policy to finished task directories.
// Tasks without an outcome record are treated as in flight and kept.
func (m *LifecycleManager) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Archived: make([]string, 0),
		Deleted:  make([]string, 0),
		Kept:     make([]string, 0),
		Errors:   make([]string, 0),
	}

	tasksDir := filepath.Join(m.baseDir, "tasks")
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	now := time.Now()
	archiveThreshold := now.Add(-time.Duration(m.config.ArchiveAfterDays) * 24 * time.Hour)
	deleteThreshold := now.Add(-time.Duration(m.config.RetentionDays) * 24 * time.Hour)

	type taskInfo struct {
		id      string
		meta    *TaskMeta
		size    int64
		endedAt time.Time
	}

	var tasks []taskInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		taskID := entry.Name()
		taskDir := filepath.Join(tasksDir, taskID)

		meta, err := loadTaskMeta(taskDir)
		if err != nil {
			// No outcome record means the task may still be running or
			// suspended awaiting input.
			result.Kept = append(result.Kept, taskID)
			continue
		}

		tasks = append(tasks, taskInfo{
			id:      taskID,
			meta:    meta,
			size:    dirSize(taskDir),
			endedAt: meta.EndedAt,
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].endedAt.Before(tasks[j].endedAt)
	})

	removed := 0
	for _, task := range tasks {
		if m.config.KeepUnresolved &&
			(task.meta.Outcome == "failed" || task.meta.Outcome == "escalated") {
			result.Kept = append(result.Kept, task.id)
			continue
		}

		remainingAfterThis := len(tasks) - removed - 1
		if remainingAfterThis < m.config.KeepMinTasks {
			result.Kept = append(result.Kept, task.id)
			continue
		}

		taskDir := filepath.Join(tasksDir, task.id)

		if task.endedAt.Before(deleteThreshold) {
			if !dryRun {
				if err := os.RemoveAll(taskDir); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", task.id, err))
					continue
				}
			}
			result.Deleted = append(result.Deleted, task.id)
			result.SpaceSaved += task.size
			removed++

		} else if task.endedAt.Before(archiveThreshold) {
			if !dryRun {
				if err := m.archiveTask(task.id, task.endedAt); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("archive %s: %v", task.id, err))
					continue
				}
			}
			result.Archived = append(result.Archived, task.id)
			result.SpaceSaved += task.size / 2 // Rough estimate
			removed++

		} else {
			result.Kept = append(result.Kept, task.id)
		}
	}

	return result, nil
}

// archiveTask compresses a finished task directory into the archive.
func (m *LifecycleManager) archiveTask(taskID string, endedAt time.Time) error {
	taskDir := filepath.Join(m.baseDir, "tasks", taskID)

	archiveDir := filepath.Join(m.baseDir, "archive", endedAt.Format("2006-01"))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return err
	}

	archivePath := filepath.Join(archiveDir, taskID+".tar.gz")

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	err = filepath.Walk(taskDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		relPath, _ := filepath.Rel(taskDir, path)
		header.Name = filepath.Join(taskID, relPath)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if !info.IsDir() {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()
			if _, err := io.Copy(tw, file); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		os.Remove(archivePath)
		return err
	}

	tw.Close()
	gz.Close()
	f.Close()

	return os.RemoveAll(taskDir)
}

// RestoreArchive restores an archived task directory.
func (m *LifecycleManager) RestoreArchive(taskID string) error {
	archivePath := m.findArchive(taskID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", taskID)
	}

	taskDir := filepath.Join(m.baseDir, "tasks", taskID)
	if _, err := os.Stat(taskDir); err == nil {
		return fmt.Errorf("task already exists: %s", taskID)
	}

	return m.extractArchive(archivePath, filepath.Dir(taskDir))
}

// ListArchives returns all archived task IDs.
func (m *LifecycleManager) ListArchives() ([]string, error) {
	archiveDir := filepath.Join(m.baseDir, "archive")
	var archives []string

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(info.Name(), ".tar.gz") {
			archives = append(archives, strings.TrimSuffix(info.Name(), ".tar.gz"))
		}
		return nil
	})

	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return archives, nil
}

// DeleteArchive removes an archived task.
func (m *LifecycleManager) DeleteArchive(taskID string) error {
	archivePath := m.findArchive(taskID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", taskID)
	}
	return os.Remove(archivePath)
}

func (m *LifecycleManager) findArchive(taskID string) string {
	archiveDir := filepath.Join(m.baseDir, "archive")
	var found string
	filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Name() == taskID+".tar.gz" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func (m *LifecycleManager) extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()

			if err := os.Chmod(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}

	return nil
}

// CleanupArchives removes archives older than the archive retention
// period.
func (m *LifecycleManager) CleanupArchives(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Deleted: make([]string, 0),
		Kept:    make([]string, 0),
		Errors:  make([]string, 0),
	}

	archiveDir := filepath.Join(m.baseDir, "archive")
	threshold := time.Now().Add(-time.Duration(m.config.ArchiveRetentionDays) * 24 * time.Hour)

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".tar.gz") {
			return nil
		}

		taskID := strings.TrimSuffix(info.Name(), ".tar.gz")

		if info.ModTime().Before(threshold) {
			if !dryRun {
				if err := os.Remove(path); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete archive %s: %v", taskID, err))
					return nil
				}
			}
			result.Deleted = append(result.Deleted, taskID)
			result.SpaceSaved += info.Size()
		} else {
			result.Kept = append(result.Kept, taskID)
		}

		return nil
	})

	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return result, nil
}

// DiskUsage returns disk usage statistics.
func (m *LifecycleManager) DiskUsage() (*DiskUsageStats, error) {
	stats := &DiskUsageStats{}

	tasksDir := filepath.Join(m.baseDir, "tasks")
	archiveDir := filepath.Join(m.baseDir, "archive")

	taskEntries, err := os.ReadDir(tasksDir)
	if err == nil {
		stats.TaskCount = len(taskEntries)
		for _, entry := range taskEntries {
			if entry.IsDir() {
				stats.ActiveSize += dirSize(filepath.Join(tasksDir, entry.Name()))
			}
		}
	}

	filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tar.gz") {
			stats.ArchiveSize += info.Size()
			stats.ArchiveCount++
		}
		return nil
	})

	stats.TotalSize = stats.ActiveSize + stats.ArchiveSize

	return stats, nil
}

// DiskUsageStats contains disk usage statistics.
type DiskUsageStats struct {
	TaskCount    int   `json:"taskCount"`
	ArchiveCount int   `json:"archiveCount"`
	ActiveSize   int64 `json:"activeSize"`
	ArchiveSize  int64 `json:"archiveSize"`
	TotalSize    int64 `json:"totalSize"`
}

func loadTaskMeta(taskDir string) (*TaskMeta, error) {
	data, err := os.ReadFile(filepath.Join(taskDir, TaskMetaFile))
	if err != nil {
		return nil, err
	}
	var meta TaskMeta
	return &meta, json.Unmarshal(data, &meta)
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
