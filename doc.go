// Package skillcycle coordinates multi-stage, AI-assisted code-change
// tasks. A cycle runs a task through isolated skill executions
// (triage, implementation, validation-strategy design, validation,
// and failure meta-analysis), persisting progress after every step so
// the task survives interruption, retries failed invocations, and
// escalates to a human when automated progress stalls.
//
// The package is organized into subpackages by domain:
//
//   - manifest: the durable per-task document and its store
//   - skill: skill names, results, executors, and the retry boundary
//   - workspace: git working-tree provisioning and reuse
//   - artifact: step artifact storage and retention
//   - history: per-task invocation audit log
//   - prompt: skill prompt templates for the CLI executor
//   - pr: pull request creation for GitHub and GitLab
//   - notify: cycle event notifications (Slack, webhook, log)
//   - config: hierarchical configuration
//
// # Quick Start
//
//	store, _ := manifest.NewFileStore(".skillcycle/tasks")
//	artifacts := artifact.NewStore(artifact.Config{})
//	executor := skill.NewContainerExecutor()
//
//	ctrl := skillcycle.NewController(store, executor, provisioner, artifacts)
//
//	m := manifest.New(
//	    manifest.TaskInfo{Title: "Add retry logic", Description: "..."},
//	    manifest.GitInfo{RepoURL: url, TargetBranch: "feature/retry", MainBranch: "main"},
//	)
//	outcome, err := ctrl.Start(ctx, m)
//
// A cycle returns one of four outcomes: completed, awaiting_user_input,
// failed, or escalated. Suspended tasks resume with answers:
//
//	outcome, err = ctrl.Resume(ctx, m.TaskID, map[string]string{
//	    "Which API version should this target?": "v2",
//	})
package skillcycle
