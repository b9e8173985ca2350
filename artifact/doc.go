// Package artifact stores skill outputs on disk, one directory per
// task with one subdirectory per step. Artifacts above a size
// threshold are gzip-compressed; loading is transparent either way.
//
// Core types:
//   - Store: Saves and loads skill artifacts per task and step
//   - LifecycleManager: Handles cleanup, archival, and retention
//
// Example usage:
//
//	store := artifact.NewStore(artifact.Config{
//	    BaseDir:       ".skillcycle",
//	    CompressAbove: 10 * 1024,
//	})
//	dir, err := store.SaveResult("task-abc", 1, result)
//	data, err := store.Load("task-abc", "triage/triage-plan.yaml")
package artifact
