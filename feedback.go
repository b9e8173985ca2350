package skillcycle

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Resume re-enters a suspended cycle with the user's answers. The
// answers are persisted as a durable artifact, the manifest's
// user-responses path is set, and the cycle continues from the logical
// point recorded at suspension rather than restarting triage.
func (c *Controller) Resume(ctx context.Context, taskID string, answers map[string]string) (Outcome, error) {
	m, err := c.store.Load(taskID)
	if err != nil {
		return "", err
	}
	if m.Context.PendingQuestionsPath == "" {
		return "", fmt.Errorf("%w: %s", ErrNotSuspended, taskID)
	}

	dir := c.artifacts.TaskDir(taskID)
	if err := c.artifacts.Save(dir, userResponsesFile, []byte(renderAnswers(answers))); err != nil {
		return "", err
	}

	m.Context.UserResponsesPath = filepath.Join(dir, userResponsesFile)
	m.Context.PendingQuestionsPath = ""
	if err := c.store.Save(m); err != nil {
		return "", err
	}

	c.logger.Info("resuming suspended cycle",
		"task_id", taskID, "skill", m.Skill, "iteration", m.Iteration)
	return c.run(ctx, m)
}

// renderAnswers formats question/answer pairs as a markdown document.
// Questions are sorted so the artifact is deterministic.
func renderAnswers(answers map[string]string) string {
	questions := make([]string, 0, len(answers))
	for q := range answers {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var b strings.Builder
	b.WriteString("# User Responses\n\n")
	for _, q := range questions {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", q, answers[q])
	}
	return b.String()
}
