package pr

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State represents the state of a pull request.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateMerged State = "merged"
)

// Provider is the interface for opening and inspecting pull requests
// for finished tasks. Implementations exist for GitHub and GitLab.
type Provider interface {
	// CreatePR creates a new pull request.
	CreatePR(ctx context.Context, opts Options) (*PullRequest, error)

	// GetPR retrieves a pull request by ID.
	GetPR(ctx context.Context, id int) (*PullRequest, error)

	// AddComment adds a comment to a pull request.
	AddComment(ctx context.Context, id int, body string) error

	// ListPRs lists pull requests matching the filter.
	ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error)
}

// Options configures pull request creation.
type Options struct {
	Title  string   // PR title (required)
	Body   string   // PR description (markdown)
	Base   string   // Target branch (default: "main")
	Head   string   // Source branch
	Labels []string // Labels to apply
	Draft  bool     // Create as draft
}

// Filter configures pull request listing.
type Filter struct {
	State State  // Filter by state (empty = all)
	Base  string // Filter by base branch
	Head  string // Filter by head branch
	Limit int    // Maximum number to return (0 = default)
}

// PullRequest represents a created pull request.
type PullRequest struct {
	ID        int        // PR number/ID
	URL       string     // API URL
	HTMLURL   string     // Web URL
	Title     string     // PR title
	Body      string     // PR description
	State     State      // Current state
	Draft     bool       // Whether it's a draft
	Head      string     // Source branch
	Base      string     // Target branch
	CreatedAt time.Time  // Creation time
	UpdatedAt time.Time  // Last update time
	MergedAt  *time.Time // Merge time (nil if not merged)
	Labels    []string   // Applied labels
}

// Builder constructs the pull request for a completed task.
type Builder struct {
	opts Options
}

// NewBuilder creates a PR builder with the given title.
func NewBuilder(title string) *Builder {
	return &Builder{
		opts: Options{
			Title: title,
			Base:  "main",
		},
	}
}

// WithTask prefixes the title with the task ID.
// Example: "Add feature" -> "[task-x7k2m9q4w1ab] Add feature"
func (b *Builder) WithTask(taskID string) *Builder {
	b.opts.Title = fmt.Sprintf("[%s] %s", taskID, b.opts.Title)
	return b
}

// WithBody sets the PR body.
func (b *Builder) WithBody(body string) *Builder {
	b.opts.Body = body
	return b
}

// WithCycleSummary builds a body from the cycle's outcome: the final
// implementation summary, the iteration and verification counts, and
// the verification summary.
func (b *Builder) WithCycleSummary(summary string, iterations, verifyAttempts int, verification string) *Builder {
	var body strings.Builder

	body.WriteString("## Summary\n\n")
	body.WriteString(summary)

	body.WriteString("\n\n## Cycle\n\n")
	fmt.Fprintf(&body, "- Implementation iterations: %d\n", iterations)
	fmt.Fprintf(&body, "- Verification attempts: %d\n", verifyAttempts)

	if verification != "" {
		body.WriteString("\n## Verification\n\n")
		body.WriteString(verification)
	}

	b.opts.Body = body.String()
	return b
}

// WithBase sets the target branch.
func (b *Builder) WithBase(base string) *Builder {
	b.opts.Base = base
	return b
}

// WithHead sets the source branch.
func (b *Builder) WithHead(head string) *Builder {
	b.opts.Head = head
	return b
}

// WithLabels adds labels.
func (b *Builder) WithLabels(labels ...string) *Builder {
	b.opts.Labels = append(b.opts.Labels, labels...)
	return b
}

// AsDraft creates as a draft PR.
func (b *Builder) AsDraft() *Builder {
	b.opts.Draft = true
	return b
}

// Build returns the constructed PR options.
func (b *Builder) Build() Options {
	return b.opts
}

// DetectProvider attempts to detect the PR provider from a remote URL.
func DetectProvider(remoteURL string) (string, error) {
	remoteURL = strings.ToLower(remoteURL)

	if strings.Contains(remoteURL, "github.com") {
		return "github", nil
	}
	if strings.Contains(remoteURL, "gitlab.com") || strings.Contains(remoteURL, "gitlab") {
		return "gitlab", nil
	}

	return "", ErrUnknownProvider
}

// ParseRepoFromURL extracts owner and repo from a git remote URL.
func ParseRepoFromURL(remoteURL string) (owner, repo string, err error) {
	// SSH URLs: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@") {
		parts := strings.Split(remoteURL, ":")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid SSH URL format")
		}
		path := strings.TrimSuffix(parts[1], ".git")
		pathParts := strings.Split(path, "/")
		if len(pathParts) != 2 {
			return "", "", fmt.Errorf("invalid repository path")
		}
		return pathParts[0], pathParts[1], nil
	}

	// HTTPS URLs: https://github.com/owner/repo.git
	remoteURL = strings.TrimPrefix(remoteURL, "https://")
	remoteURL = strings.TrimPrefix(remoteURL, "http://")
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	parts := strings.Split(remoteURL, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("invalid URL format")
	}

	return parts[len(parts)-2], parts[len(parts)-1], nil
}
