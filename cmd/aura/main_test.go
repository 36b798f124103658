package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aura/internal/buildfix"
	"aura/internal/version"
)

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootFlag, verbosityFlag, quietFlag = "", 0, false
	toolsJSONFlag, buildfixJSONFlag = false, false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "aura "+version.Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestToolsCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{"summary", []string{"tools"}, []string{"TOOL", "search", "refactor", "list_operations"}, false},
		{"operations", []string{"tools", "refactor"}, []string{"OPERATION", "rename", "default, python, typescript", "safe_delete"}, false},
		{"simple tool", []string{"tools", "worktree_info"}, []string{"worktree_info:"}, false},
		{"json", []string{"tools", "--json"}, []string{`"name": "validate"`, `"inputSchema"`}, false},
		{"unknown", []string{"tools", "nope"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got output %q", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestWorktreeCommand(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--root", root, "-q", "worktree")
	if err != nil {
		t.Fatalf("worktree error = %v", err)
	}
	if !strings.Contains(out, `"isWorktree": false`) || !strings.Contains(out, `"mainRepoPath"`) {
		t.Errorf("worktree output = %s", out)
	}
}

func TestNewApp_WiresStorage(t *testing.T) {
	rootFlag, quietFlag = t.TempDir(), true
	t.Cleanup(func() { rootFlag, quietFlag = "", false })

	a, err := newApp(false)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if a.db == nil || a.runs == nil {
		t.Fatal("expected storage and run history to be opened")
	}
	if a.recorder() == nil {
		t.Error("recorder should be the run store")
	}
	if a.fixer() != nil {
		t.Error("fixer should be nil when disabled")
	}

	opts, err := a.serverOptions()
	if err != nil {
		t.Fatalf("serverOptions() error = %v", err)
	}
	if opts.Workflows == nil || opts.Patterns == nil || opts.Generator == nil || opts.Scripts == nil {
		t.Errorf("serverOptions left collaborators unset: %+v", opts)
	}
}

func TestScriptRoot_Env(t *testing.T) {
	t.Setenv(homeEnv, "/opt/aura")
	if got := scriptRoot(); got != "/opt/aura" {
		t.Errorf("scriptRoot() = %q, want /opt/aura", got)
	}
}

func TestPrintResult(t *testing.T) {
	res := &buildfix.Result{
		RunID:      "run-1",
		Reason:     buildfix.ReasonNoFixerAvailable,
		Ecosystem:  "go",
		Root:       "/repo",
		Iterations: 1,
		History: []buildfix.Iteration{
			{Index: 1, Status: buildfix.StatusFailed, ErrorCount: 1},
		},
		FinalErrors: []buildfix.BuildError{
			{FilePath: "main.go", Line: 3, Column: 2, Message: "undefined: x"},
		},
		Duration: 1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()
	for _, want := range []string{"Run run-1 (go) in /repo", "#1 failed: 1 error(s)", "main.go:3:2:", "Result: no_fixer_available after 1 iteration(s), 1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
