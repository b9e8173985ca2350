package workspace

import (
	"errors"
	"testing"
)

func TestExecRunner_Run(t *testing.T) {
	runner := NewExecRunner()

	output, err := runner.Run("", "echo", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if output != "hello" {
		t.Errorf("output = %q, want %q", output, "hello")
	}
}

func TestExecRunner_Run_Error(t *testing.T) {
	runner := NewExecRunner()

	_, err := runner.Run("", "ls", "/nonexistent/path/that/does/not/exist")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Errorf("error should be CommandError, got %T", err)
	}
}

func TestCommandError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CommandError
		want string
	}{
		{
			name: "with output",
			err: &CommandError{
				Command: "git",
				Args:    []string{"status"},
				Output:  "fatal: not a git repository",
				Err:     errors.New("exit status 128"),
			},
			want: "fatal: not a git repository",
		},
		{
			name: "without output",
			err: &CommandError{
				Command: "git",
				Args:    []string{"push"},
				Err:     errors.New("exit status 1"),
			},
			want: "exit status 1",
		},
		{
			name: "no output or error",
			err:  &CommandError{Command: "test"},
			want: "command failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMockRunner_Run(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnCommand("git", "status", "--short").Return("M file.go", nil)

		output, err := runner.Run("/repo", "git", "status", "--short")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if output != "M file.go" {
			t.Errorf("output = %q", output)
		}
	})

	t.Run("wildcard match", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnAnyCommand().Return("wildcard", nil)

		output, err := runner.Run("/repo", "any", "command")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if output != "wildcard" {
			t.Errorf("output = %q", output)
		}
	})

	t.Run("with error", func(t *testing.T) {
		runner := NewMockRunner()
		expectedErr := errors.New("mock error")
		runner.OnCommand("fail").Return("", expectedErr)

		_, err := runner.Run("/repo", "fail")
		if err != expectedErr {
			t.Errorf("error = %v, want %v", err, expectedErr)
		}
	})
}

func TestMockRunner_Calls(t *testing.T) {
	runner := NewMockRunner()
	runner.OnAnyCommand().Return("", nil)

	runner.Run("/repo", "git", "status")
	runner.Run("/other", "git", "log")

	if len(runner.Calls) != 2 {
		t.Fatalf("Calls = %d, want 2", len(runner.Calls))
	}
	if runner.Calls[0].WorkDir != "/repo" {
		t.Errorf("first call workdir = %q", runner.Calls[0].WorkDir)
	}
	if !runner.WasCalled("git", "status") {
		t.Error("WasCalled(git status) should be true")
	}
	if runner.WasCalled("npm") {
		t.Error("WasCalled(npm) should be false")
	}
	if count := runner.CallCount("git"); count != 2 {
		t.Errorf("CallCount(git) = %d, want 2", count)
	}
}
