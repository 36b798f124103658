package runner

import (
	"context"
	"os/exec"
	"sync"
)

// MockRunner implements Runner for testing. Results are keyed by the command
// name or by the full "name args..." line; a key given several results
// returns them in order and then keeps repeating the last one.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	commands map[string][]mockResult
	calls    []Command
}

type mockResult struct {
	result Result
	err    error
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		commands: make(map[string][]mockResult),
	}
}

// SetLookPath configures the mock to return a path for the given name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetCommand appends a scripted result for key.
func (m *MockRunner) SetCommand(key string, res Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[key] = append(m.commands[key], mockResult{result: res, err: err})
}

// Calls returns every command run so far.
func (m *MockRunner) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.calls))
	copy(out, m.calls)
	return out
}

// LookPath implements Runner.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

// Run implements Runner.
func (m *MockRunner) Run(ctx context.Context, c Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)

	for _, key := range []string{c.String(), c.Name} {
		queue, ok := m.commands[key]
		if !ok || len(queue) == 0 {
			continue
		}
		next := queue[0]
		if len(queue) > 1 {
			m.commands[key] = queue[1:]
		}
		return next.result, next.err
	}
	return Result{}, exec.ErrNotFound
}
