package history

import (
	"errors"
	"testing"
	"time"

	"github.com/randalmurphal/skillcycle/skill"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := NewLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	return log
}

func TestLog_AppendList(t *testing.T) {
	log := newTestLog(t)

	if err := log.Append("task-1", Entry{Skill: skill.Triage, Status: skill.StatusSuccess, Iteration: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append("task-1", Entry{Skill: skill.Execute, Status: skill.StatusSuccess, Iteration: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := log.List("task-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List = %d entries, want 2", len(entries))
	}
	if entries[0].Skill != skill.Triage || entries[1].Skill != skill.Execute {
		t.Errorf("order = %v, %v", entries[0].Skill, entries[1].Skill)
	}
	if entries[0].At.IsZero() {
		t.Error("timestamp should be set on append")
	}
}

func TestLog_List_NoHistory(t *testing.T) {
	log := newTestLog(t)
	_, err := log.List("task-missing")
	if !errors.Is(err, ErrNoHistory) {
		t.Errorf("err = %v, want ErrNoHistory", err)
	}
}

func TestLog_Last(t *testing.T) {
	log := newTestLog(t)
	log.Append("task-1", Entry{Skill: skill.Execute, Iteration: 1})
	log.Append("task-1", Entry{Skill: skill.Verify, Attempt: 2})

	last, err := log.Last("task-1")
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Skill != skill.Verify || last.Attempt != 2 {
		t.Errorf("Last = %+v", last)
	}
}

func TestLog_CountSkill(t *testing.T) {
	log := newTestLog(t)
	log.Append("task-1", Entry{Skill: skill.Execute, Iteration: 1})
	log.Append("task-1", Entry{Skill: skill.Execute, Iteration: 2})
	log.Append("task-1", Entry{Skill: skill.Verify, Attempt: 1})

	count, err := log.CountSkill("task-1", skill.Execute)
	if err != nil || count != 2 {
		t.Errorf("CountSkill = %d, %v, want 2", count, err)
	}

	count, err = log.CountSkill("task-none", skill.Execute)
	if err != nil || count != 0 {
		t.Errorf("CountSkill on unknown task = %d, %v", count, err)
	}
}

func TestLog_Record(t *testing.T) {
	log := newTestLog(t)
	result := &skill.Result{
		Skill:    skill.Verify,
		Status:   skill.StatusSuccess,
		Duration: 3 * time.Second,
		Outputs: map[string]skill.Artifact{
			skill.ArtifactVerificationResults: {Name: skill.ArtifactVerificationResults},
		},
	}

	if err := log.Record("task-1", result, 4, 2, "/artifacts/task-1/verify-002"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	last, err := log.Last("task-1")
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Iteration != 4 || last.Attempt != 2 || last.ArtifactDir == "" {
		t.Errorf("entry = %+v", last)
	}
	if len(last.Outputs) != 1 || last.Outputs[0] != skill.ArtifactVerificationResults {
		t.Errorf("Outputs = %v", last.Outputs)
	}
}
