package workspace

import (
	"os/exec"
	"strings"
)

// CommandRunner executes external commands. The default ExecRunner
// shells out; MockRunner replaces it in tests.
type CommandRunner interface {
	// Run executes the command in dir and returns trimmed stdout.
	Run(dir, command string, args ...string) (string, error)
}

// CommandError wraps a failed command execution.
type CommandError struct {
	Command string   // Command that was run
	Args    []string // Command arguments
	Output  string   // Combined output, if any
	Err     error    // Underlying error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "command failed"
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner that executes real commands.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns trimmed stdout. Failures carry
// the combined output in a CommandError.
func (r *ExecRunner) Run(dir, command string, args ...string) (string, error) {
	cmd := exec.Command(command, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &CommandError{
			Command: command,
			Args:    args,
			Output:  strings.TrimSpace(string(output)),
			Err:     err,
		}
	}

	return strings.TrimSpace(string(output)), nil
}

// MockResponse is a canned response for MockRunner.
type MockResponse struct {
	Stdout string
	Err    error
}

// MockCall records one Run invocation on MockRunner.
type MockCall struct {
	WorkDir string
	Command string
	Args    []string
}

// MockRunner is a CommandRunner for tests. Responses are matched by
// "command args..." key, then by command alone, then by the "*"
// wildcard, then DefaultResponse.
type MockRunner struct {
	Responses       map[string]MockResponse
	DefaultResponse MockResponse
	Calls           []MockCall
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]MockResponse),
	}
}

// mockExpectation lets OnCommand chain a Return.
type mockExpectation struct {
	runner *MockRunner
	key    string
}

// OnCommand registers an expectation for the exact command and args.
func (m *MockRunner) OnCommand(command string, args ...string) *mockExpectation {
	key := command
	if len(args) > 0 {
		key += " " + strings.Join(args, " ")
	}
	return &mockExpectation{runner: m, key: key}
}

// OnAnyCommand registers a wildcard expectation.
func (m *MockRunner) OnAnyCommand() *mockExpectation {
	return &mockExpectation{runner: m, key: "*"}
}

// Return sets the response for the expectation.
func (e *mockExpectation) Return(stdout string, err error) {
	e.runner.Responses[e.key] = MockResponse{Stdout: stdout, Err: err}
}

// Run returns the first matching canned response and records the call.
func (m *MockRunner) Run(dir, command string, args ...string) (string, error) {
	m.Calls = append(m.Calls, MockCall{WorkDir: dir, Command: command, Args: args})

	key := command
	if len(args) > 0 {
		key += " " + strings.Join(args, " ")
	}
	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Err
	}
	if resp, ok := m.Responses[command]; ok {
		return resp.Stdout, resp.Err
	}
	if resp, ok := m.Responses["*"]; ok {
		return resp.Stdout, resp.Err
	}
	return m.DefaultResponse.Stdout, m.DefaultResponse.Err
}

// WasCalled reports whether a call matching command and args prefix
// was made.
func (m *MockRunner) WasCalled(command string, args ...string) bool {
	for _, call := range m.Calls {
		if call.Command != command {
			continue
		}
		if len(args) == 0 {
			return true
		}
		if len(call.Args) >= len(args) && argsMatch(call.Args[:len(args)], args) {
			return true
		}
	}
	return false
}

// CallCount returns how many times the command was run.
func (m *MockRunner) CallCount(command string) int {
	count := 0
	for _, call := range m.Calls {
		if call.Command == command {
			count++
		}
	}
	return count
}

func argsMatch(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}
