// Package pr opens pull requests for tasks that complete the cycle.
//
// Core types:
//   - Provider: Interface for creating and inspecting pull requests
//   - Options: Configuration for creating a pull request
//   - Builder: Fluent builder for the completed-task PR description
//
// Implementations:
//   - GitHubProvider: GitHub PR provider using go-github
//   - GitLabProvider: GitLab MR provider using go-gitlab
//
// Example usage:
//
//	provider, _ := pr.ProviderFromEnv(remoteURL)
//	opts := pr.NewBuilder(task.Title).
//	    WithTask(taskID).
//	    WithHead("feature/my-branch").
//	    WithCycleSummary(summary, 3, 1, verification).
//	    Build()
//	pull, err := provider.CreatePR(ctx, opts)
package pr
