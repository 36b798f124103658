package mcp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aura/internal/backends/script"
	"aura/internal/config"
	"aura/internal/patterns"
	"aura/internal/runner"
	"aura/internal/workflow"
)

func TestCallTool_ArgumentErrors(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name    string
		tool    string
		args    map[string]interface{}
		wantMsg []string
	}{
		{
			name:    "unknown operation",
			tool:    "refactor",
			args:    map[string]interface{}{"operation": "inline"},
			wantMsg: []string{"Unknown operation: inline"},
		},
		{
			name:    "missing operation",
			tool:    "search",
			args:    map[string]interface{}{"query": "x"},
			wantMsg: []string{"operation (required)"},
		},
		{
			name:    "native rename fields",
			tool:    "refactor",
			args:    map[string]interface{}{"operation": "rename", "symbolName": "Area"},
			wantMsg: []string{"newName (required)", "solutionPath (required)"},
		},
		{
			name:    "rename to same name",
			tool:    "refactor",
			args:    map[string]interface{}{"operation": "rename", "symbolName": "Area", "newName": "Area", "solutionPath": "App.sln"},
			wantMsg: []string{"must differ from SymbolName"},
		},
		{
			name:    "script rename needs a position",
			tool:    "refactor",
			args:    map[string]interface{}{"operation": "rename", "filePath": "app/models.py", "newName": "total"},
			wantMsg: []string{"offset (required)", "projectPath (required)"},
		},
		{
			name:    "unsupported language",
			tool:    "navigate",
			args:    map[string]interface{}{"operation": "callers", "symbolName": "Area", "language": "cobol"},
			wantMsg: []string{"unsupported language cobol"},
		},
		{
			name:    "bad workflow status",
			tool:    "workflow",
			args:    map[string]interface{}{"operation": "update_step", "workflowId": "w", "stepId": "s", "status": "done"},
			wantMsg: []string{"status (must be one of pending, in_progress, completed, failed, skipped)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rpcErr := callTool(t, server, tt.tool, tt.args)
			if rpcErr == nil {
				t.Fatal("expected an error response")
			}
			if rpcErr.Code != InvalidParams {
				t.Errorf("code = %d, want %d (%s)", rpcErr.Code, InvalidParams, rpcErr.Message)
			}
			for _, want := range tt.wantMsg {
				if !strings.Contains(rpcErr.Message, want) {
					t.Errorf("message = %q, want it to contain %q", rpcErr.Message, want)
				}
			}
		})
	}
}

func TestNavigate_Callers(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "navigate", map[string]interface{}{"operation": "callers", "symbolName": "Area"})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	data := dataOf(t, env)
	callers := data["callers"].([]interface{})
	if len(callers) != 1 {
		t.Fatalf("callers = %v, want 1", callers)
	}
	if name := callers[0].(map[string]interface{})["name"]; name != "Print" {
		t.Errorf("caller = %v, want Print", name)
	}

	meta := env["meta"].(map[string]interface{})
	if tier := meta["confidence"].(map[string]interface{})["tier"]; tier != "medium" {
		t.Errorf("tier = %v, want medium", tier)
	}
}

func TestNavigate_Implementations(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "navigate", map[string]interface{}{"operation": "implementations", "symbolName": "IShape"})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	if got := dataOf(t, env)["count"]; got != float64(1) {
		t.Errorf("count = %v, want 1", got)
	}
}

func TestNotFoundIsAPayload(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"callers", "navigate", map[string]interface{}{"operation": "callers", "symbolName": "Missing"}, "Symbol 'Missing' not found"},
		{"find_type", "inspect", map[string]interface{}{"operation": "find_type", "typeName": "Area"}, "Type 'Area' not found"},
		{"file_symbols", "inspect", map[string]interface{}{"operation": "file_symbols", "filePath": "src/None.cs"}, "File 'src/None.cs' not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, rpcErr := callTool(t, server, tt.tool, tt.args)
			if rpcErr != nil {
				t.Fatalf("NOT_FOUND should not be an RPC error: %+v", rpcErr)
			}
			msg, _ := env["error"].(string)
			if !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "inspect", map[string]interface{}{"operation": "type_members", "typeName": "Circle"})
	if rpcErr != nil {
		t.Fatalf("type_members: %s", rpcErr.Message)
	}
	data := dataOf(t, env)
	if data["count"] != float64(1) {
		t.Errorf("members = %v, want 1", data["members"])
	}

	env, rpcErr = callTool(t, server, "inspect", map[string]interface{}{"operation": "file_symbols", "filePath": "src/Shapes.cs"})
	if rpcErr != nil {
		t.Fatalf("file_symbols: %s", rpcErr.Message)
	}
	if got := dataOf(t, env)["count"]; got != float64(3) {
		t.Errorf("file symbols = %v, want 3", got)
	}
}

func TestSearch_Symbols(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "search", map[string]interface{}{"operation": "symbols", "query": "circle"})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	if got := dataOf(t, env)["count"]; got != float64(1) {
		t.Errorf("count = %v, want 1", got)
	}

	env, rpcErr = callTool(t, server, "search", map[string]interface{}{"operation": "symbols", "query": "", "language": "python"})
	if rpcErr == nil {
		t.Fatalf("empty query should be rejected, got %v", env)
	}
}

func TestSearch_SemanticFallsBackToText(t *testing.T) {
	server := newTestServer(t, nil)
	if err := os.WriteFile(filepath.Join(server.root, "main.go"), []byte("package main\n\n// Hello (world)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	env, rpcErr := callTool(t, server, "search", map[string]interface{}{"operation": "semantic", "query": "hello (WORLD)"})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	matches := dataOf(t, env)["matches"].([]interface{})
	if len(matches) != 1 {
		t.Fatalf("matches = %v, want 1", matches)
	}
	if line := matches[0].(map[string]interface{})["line"]; line != float64(3) {
		t.Errorf("line = %v, want 3", line)
	}

	warnings, _ := env["warnings"].([]interface{})
	if len(warnings) != 1 || warnings[0].(map[string]interface{})["code"] != "SEMANTIC_UNAVAILABLE" {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestRefactor_RenamePreview(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "refactor", map[string]interface{}{
		"operation":    "rename",
		"symbolName":   "Area",
		"newName":      "Surface",
		"solutionPath": "App.sln",
	})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	data := dataOf(t, env)
	if data["targetSymbol"] != "Area" || data["newName"] != "Surface" {
		t.Errorf("blast radius = %v", data)
	}
	if data["totalReferences"] != float64(1) {
		t.Errorf("totalReferences = %v, want 1", data["totalReferences"])
	}

	next, _ := env["suggestedNextCalls"].([]interface{})
	if len(next) != 1 {
		t.Fatalf("suggestedNextCalls = %v", next)
	}
	params := next[0].(map[string]interface{})["params"].(map[string]interface{})
	if params["execute"] != true || params["operation"] != "rename" {
		t.Errorf("suggested params = %v", params)
	}
}

func TestRefactor_CompilerBackendUnavailable(t *testing.T) {
	server := newTestServer(t, nil)

	_, rpcErr := callTool(t, server, "refactor", map[string]interface{}{
		"operation":    "extract_method",
		"solutionPath": "App.sln",
		"filePath":     "src/Shapes.cs",
		"start":        10,
		"end":          40,
		"newName":      "Compute",
	})
	if rpcErr == nil {
		t.Fatal("expected an error without a refactoring backend")
	}
	if rpcErr.Code != ToolExecutionError {
		t.Errorf("code = %d, want %d", rpcErr.Code, ToolExecutionError)
	}
	if !strings.Contains(rpcErr.Message, "not configured") {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

func TestRefactor_ScriptRouting(t *testing.T) {
	mock := runner.NewMockRunner()
	server := newTestServer(t, func(o *Options) {
		o.Runner = mock
		o.Scripts = script.New(mock, config.DefaultConfig().Languages, o.Root, nil)
	})
	mock.SetCommand("python3", runner.Result{Stdout: `{"success": false, "error": "no symbol at offset 12", "errorType": "SymbolNotFound"}`}, nil)

	env, rpcErr := callTool(t, server, "refactor", map[string]interface{}{
		"operation":   "rename",
		"projectPath": ".",
		"filePath":    "app/models.py",
		"offset":      12,
		"newName":     "total",
	})
	if rpcErr != nil {
		t.Fatalf("a refused refactoring should be a payload: %+v", rpcErr)
	}
	if msg, _ := env["error"].(string); msg != "no symbol at offset 12" {
		t.Errorf("error = %q", msg)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	args := strings.Join(calls[0].Args, " ")
	for _, want := range []string{"rename", "--offset 12", "--new-name total", "--preview"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q should contain %q", args, want)
		}
	}
}

func TestRefactor_ExtractRequiresNewName(t *testing.T) {
	mock := runner.NewMockRunner()
	server := newTestServer(t, func(o *Options) {
		o.Runner = mock
		o.Scripts = script.New(mock, config.DefaultConfig().Languages, o.Root, nil)
	})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"script extract_method", map[string]interface{}{"operation": "extract_method", "projectPath": ".", "filePath": "app/m.py", "start": 1, "end": 5}},
		{"script extract_variable", map[string]interface{}{"operation": "extract_variable", "projectPath": ".", "filePath": "src/index.ts", "start": 1, "end": 5}},
		{"native extract_method", map[string]interface{}{"operation": "extract_method", "solutionPath": "App.sln", "filePath": "src/Shapes.cs", "start": 1, "end": 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rpcErr := callTool(t, server, "refactor", tt.args)
			if rpcErr == nil || rpcErr.Code != InvalidParams {
				t.Fatalf("rpcErr = %+v, want invalid params", rpcErr)
			}
			if !strings.Contains(rpcErr.Message, "newName (required)") {
				t.Errorf("message = %q", rpcErr.Message)
			}
		})
	}
	if calls := mock.Calls(); len(calls) != 0 {
		t.Errorf("runner calls = %d, want 0", len(calls))
	}
}

func TestNavigate_ScriptBackendUnavailable(t *testing.T) {
	server := newTestServer(t, nil)

	_, rpcErr := callTool(t, server, "navigate", map[string]interface{}{
		"operation":   "references",
		"language":    "typescript",
		"projectPath": ".",
		"filePath":    "src/index.ts",
		"offset":      0,
	})
	if rpcErr == nil || rpcErr.Code != ToolExecutionError {
		t.Fatalf("rpcErr = %+v, want a tool execution error", rpcErr)
	}
}

func TestPattern(t *testing.T) {
	reg, err := patterns.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	server := newTestServer(t, func(o *Options) { o.Patterns = reg })

	env, rpcErr := callTool(t, server, "pattern", map[string]interface{}{"operation": "get", "name": "does-not-exist"})
	if rpcErr != nil {
		t.Fatalf("missing pattern should not be an RPC error: %+v", rpcErr)
	}
	data := dataOf(t, env)
	if data["success"] != false || data["message"] != "Pattern 'does-not-exist' not found" {
		t.Errorf("data = %v", data)
	}

	env, rpcErr = callTool(t, server, "pattern", map[string]interface{}{"operation": "get", "name": "repository"})
	if rpcErr != nil {
		t.Fatalf("get: %s", rpcErr.Message)
	}
	if dataOf(t, env)["success"] != true {
		t.Errorf("data = %v", env["data"])
	}

	env, rpcErr = callTool(t, server, "pattern", map[string]interface{}{"operation": "list", "language": "csharp"})
	if rpcErr != nil {
		t.Fatalf("list: %s", rpcErr.Message)
	}
	if n := dataOf(t, env)["count"].(float64); n < 2 {
		t.Errorf("count = %v, want at least 2", n)
	}
}

func TestWorkflow_Lifecycle(t *testing.T) {
	svc := workflow.NewService(workflow.NewMemoryStore(), nil, nil)
	server := newTestServer(t, func(o *Options) { o.Workflows = svc })

	env, rpcErr := callTool(t, server, "workflow", map[string]interface{}{
		"operation": "create",
		"title":     "Split Shapes.cs",
		"steps":     []interface{}{"move Circle", "move Square"},
	})
	if rpcErr != nil {
		t.Fatalf("create: %s", rpcErr.Message)
	}
	wf := dataOf(t, env)
	id := wf["id"].(string)
	steps := wf["steps"].([]interface{})
	if len(steps) != 2 {
		t.Fatalf("steps = %v", steps)
	}
	stepID := steps[0].(map[string]interface{})["id"].(string)

	env, rpcErr = callTool(t, server, "workflow", map[string]interface{}{
		"operation":  "update_step",
		"workflowId": id,
		"stepId":     stepID,
		"status":     "in_progress",
	})
	if rpcErr != nil {
		t.Fatalf("update_step: %s", rpcErr.Message)
	}
	if status := dataOf(t, env)["status"]; status != "in_progress" {
		t.Errorf("workflow status = %v, want in_progress", status)
	}

	env, rpcErr = callTool(t, server, "workflow", map[string]interface{}{"operation": "get", "workflowId": "nope"})
	if rpcErr != nil {
		t.Fatalf("unknown workflow should be a payload: %+v", rpcErr)
	}
	if env["error"] == nil {
		t.Error("expected a not-found message")
	}
}

func TestWorkflow_StoreUnavailable(t *testing.T) {
	server := newTestServer(t, nil)
	_, rpcErr := callTool(t, server, "workflow", map[string]interface{}{"operation": "list"})
	if rpcErr == nil || rpcErr.Code != ToolExecutionError {
		t.Fatalf("rpcErr = %+v", rpcErr)
	}
}

func TestValidate_Compilation(t *testing.T) {
	mock := runner.NewMockRunner()
	server := newTestServer(t, func(o *Options) { o.Runner = mock })
	if err := os.WriteFile(filepath.Join(server.root, "go.mod"), []byte("module example.com/shapes\n\ngo 1.22\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mock.SetCommand("go", runner.Result{ExitCode: 1, Stdout: "./main.go:4:2: undefined: x\n"}, nil)

	env, rpcErr := callTool(t, server, "validate", map[string]interface{}{"operation": "compilation"})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	data := dataOf(t, env)
	if data["ecosystem"] != "go" || data["passed"] != false {
		t.Errorf("data = %v", data)
	}
	if errs := data["errors"].([]interface{}); len(errs) != 1 {
		t.Errorf("errors = %v, want 1", errs)
	}
}

func TestListOperations(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "list_operations", nil)
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	tools := dataOf(t, env)["tools"].(map[string]interface{})
	if len(tools) != len(metaTools) {
		t.Errorf("tools = %d, want %d", len(tools), len(metaTools))
	}
	for _, op := range tools["refactor"].([]interface{}) {
		info := op.(map[string]interface{})
		if info["name"] != "rename" {
			continue
		}
		langs := info["languages"].([]interface{})
		if len(langs) != 2 || langs[0] != "python" || langs[1] != "typescript" {
			t.Errorf("rename languages = %v", langs)
		}
		return
	}
	t.Error("refactor should list rename")
}

func TestWorktreeInfo(t *testing.T) {
	server := newTestServer(t, nil)

	env, rpcErr := callTool(t, server, "worktree_info", map[string]interface{}{})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %s", rpcErr.Message)
	}
	data := dataOf(t, env)
	if data["isWorktree"] != false {
		t.Errorf("isWorktree = %v", data["isWorktree"])
	}
	if data["mainRepoPath"] != filepath.Clean(server.root) {
		t.Errorf("mainRepoPath = %v, want %s", data["mainRepoPath"], server.root)
	}
}
