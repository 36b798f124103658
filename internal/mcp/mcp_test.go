package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"aura/internal/version"
)

func TestMCPServerCreation(t *testing.T) {
	server := newTestServer(t, nil)

	if len(server.tools) != len(metaTools)+len(simpleTools) {
		t.Errorf("tools = %d, want %d", len(server.tools), len(metaTools)+len(simpleTools))
	}
	if len(server.Catalog()) != len(metaTools) {
		t.Errorf("catalog = %d routers, want %d", len(server.Catalog()), len(metaTools))
	}
}

func TestInitializeMethod(t *testing.T) {
	server := newTestServer(t, nil)

	params := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "test-client",
			"version": "1.0.0",
		},
	}
	response := sendRequest(t, server, "initialize", 1, params)

	if response.Error != nil {
		t.Fatalf("Should not have error: %v", response.Error.Message)
	}
	result, ok := response.Result.(*InitializeResult)
	if !ok {
		t.Fatalf("Result should be an InitializeResult, got %T", response.Result)
	}
	if result.ProtocolVersion != version.ProtocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, version.ProtocolVersion)
	}
	if result.ServerInfo.Name != "aura" || result.ServerInfo.Version != version.Version {
		t.Errorf("serverInfo = %+v", result.ServerInfo)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"capabilities":{"tools":{}}`) {
		t.Errorf("capabilities should declare tools: %s", raw)
	}
}

func TestToolsListMethod(t *testing.T) {
	server := newTestServer(t, nil)

	response := sendRequest(t, server, "tools/list", 1, nil)
	if response.Error != nil {
		t.Fatalf("Should not have error: %v", response.Error.Message)
	}
	result, ok := response.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result should be a map, got %T", response.Result)
	}
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatalf("Tools should be []Tool, got %T", result["tools"])
	}

	wantNames := []string{"search", "navigate", "inspect", "refactor", "generate", "validate", "workflow", "pattern", "worktree_info", "list_operations"}
	if len(tools) != len(wantNames) {
		t.Fatalf("tools = %d, want %d", len(tools), len(wantNames))
	}
	for i, tool := range tools {
		if tool.Name != wantNames[i] {
			t.Errorf("tools[%d] = %q, want %q", i, tool.Name, wantNames[i])
		}
		if tool.Description == "" {
			t.Errorf("%s should have a description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s schema type = %v", tool.Name, tool.InputSchema["type"])
		}
	}

	props := tools[3].InputSchema["properties"].(map[string]interface{})
	op := props["operation"].(map[string]interface{})
	enum := op["enum"].([]string)
	want := []string{"change_signature", "extract_interface", "extract_method", "extract_variable", "move_type_to_file", "rename", "safe_delete"}
	if strings.Join(enum, ",") != strings.Join(want, ",") {
		t.Errorf("refactor operations = %v, want %v", enum, want)
	}
	if req := tools[3].InputSchema["required"].([]string); len(req) == 0 || req[0] != "operation" {
		t.Errorf("refactor required = %v", req)
	}
}

func TestProtocolErrors(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name     string
		method   string
		params   interface{}
		wantCode int
		wantMsg  string
	}{
		{"unknown method", "resources/list", nil, MethodNotFound, "Method not found"},
		{"call without params", "tools/call", nil, InvalidParams, "Invalid params"},
		{"call without name", "tools/call", map[string]interface{}{"arguments": map[string]interface{}{}}, InvalidParams, "name is required"},
		{"unknown tool", "tools/call", map[string]interface{}{"name": "nonexistent"}, InvalidParams, "Unknown tool: nonexistent"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := 100 + i
			resp := sendRequest(t, server, tt.method, id, tt.params)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
			if !strings.Contains(resp.Error.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", resp.Error.Message, tt.wantMsg)
			}
			if string(resp.Id) != strconv.Itoa(id) {
				t.Errorf("id = %s, want %d", resp.Id, id)
			}
		})
	}
}

func TestPing(t *testing.T) {
	server := newTestServer(t, nil)
	resp := sendRequest(t, server, "ping", 7, nil)
	if resp.Error != nil {
		t.Fatalf("ping error: %v", resp.Error.Message)
	}
}

func TestNotificationHasNoResponse(t *testing.T) {
	server := newTestServer(t, nil)
	msg := &MCPMessage{Jsonrpc: "2.0", Method: "notifications/initialized"}
	if resp := server.handleMessage(context.Background(), msg); resp != nil {
		t.Errorf("notification produced a response: %+v", resp)
	}
}

type wireResponse struct {
	Id    json.RawMessage `json:"id"`
	Error *MCPError       `json:"error"`
}

func TestStart_EchoesIdsAndReportsParseErrors(t *testing.T) {
	server := newTestServer(t, nil)

	input := strings.Join([]string{
		`not json at all`,
		``,
		`{"jsonrpc":"2.0","id":"req-abc","method":"bogus"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
	}, "\n") + "\n"
	var out bytes.Buffer
	server.SetStdin(strings.NewReader(input))
	server.SetStdout(&out)

	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var responses []wireResponse
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var r wireResponse
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad output line %q: %v", sc.Text(), err)
		}
		responses = append(responses, r)
	}
	if len(responses) != 3 {
		t.Fatalf("responses = %d, want 3:\n%s", len(responses), out.String())
	}

	if string(responses[0].Id) != "null" || responses[0].Error == nil || responses[0].Error.Code != ParseError {
		t.Errorf("parse failure response = %+v", responses[0])
	}
	if string(responses[1].Id) != `"req-abc"` || responses[1].Error == nil || responses[1].Error.Code != MethodNotFound {
		t.Errorf("unknown method response = %s %+v", responses[1].Id, responses[1].Error)
	}
	if string(responses[2].Id) != "42" || responses[2].Error != nil {
		t.Errorf("ping response = %s %+v", responses[2].Id, responses[2].Error)
	}
}

func TestStart_StopsWhenCancelled(t *testing.T) {
	server := newTestServer(t, nil)
	server.SetStdin(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"))
	var out bytes.Buffer
	server.SetStdout(&out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := server.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("cancelled server wrote %q", out.String())
	}
}
