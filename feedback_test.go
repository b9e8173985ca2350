package skillcycle

import (
	"errors"
	"strings"
	"testing"

	"github.com/randalmurphal/skillcycle/testutil"
)

func TestResume_NotSuspended(t *testing.T) {
	ex := testutil.NewScriptedExecutor()
	c, store, _ := newTestController(t, ex)
	m := testutil.Manifest(t)
	if err := store.Save(m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, err := c.Resume(testutil.TestContext(t), m.TaskID, nil)
	if !errors.Is(err, ErrNotSuspended) {
		t.Errorf("Resume() error = %v, want ErrNotSuspended", err)
	}
	if len(ex.Calls) != 0 {
		t.Errorf("invocations = %d, want 0", len(ex.Calls))
	}
}

func TestResume_UnknownTask(t *testing.T) {
	c, _, _ := newTestController(t, testutil.NewScriptedExecutor())

	if _, err := c.Resume(testutil.TestContext(t), "no-such-task", nil); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestRenderAnswers(t *testing.T) {
	got := renderAnswers(map[string]string{
		"Which DB?":  "Postgres",
		"Which API?": "v2",
	})

	if !strings.HasPrefix(got, "# User Responses\n") {
		t.Errorf("missing header:\n%s", got)
	}
	// Sorted by question, so the API answer comes first.
	api := strings.Index(got, "## Which API?")
	db := strings.Index(got, "## Which DB?")
	if api == -1 || db == -1 || api > db {
		t.Errorf("answers out of order:\n%s", got)
	}
	if !strings.Contains(got, "Postgres") || !strings.Contains(got, "v2") {
		t.Errorf("answers missing:\n%s", got)
	}
}

func TestRenderQuestions(t *testing.T) {
	t.Run("numbered list", func(t *testing.T) {
		got := renderQuestions([]string{"Which DB?", "Which API?"})
		if !strings.Contains(got, "1. Which DB?") || !strings.Contains(got, "2. Which API?") {
			t.Errorf("unexpected rendering:\n%s", got)
		}
	})

	t.Run("no questions still produces a document", func(t *testing.T) {
		got := renderQuestions(nil)
		if !strings.Contains(got, "# Pending Questions") {
			t.Errorf("unexpected rendering:\n%s", got)
		}
		if !strings.Contains(got, "human decision") {
			t.Errorf("missing fallback text:\n%s", got)
		}
	})
}
