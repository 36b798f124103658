package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"testing"

	"aura/internal/backends"
	"aura/internal/runner"
	"aura/internal/slogutil"
	"aura/internal/version"
)

// testGraph is a small C# code graph rooted at root.
func testGraph(root string) *backends.StaticGraph {
	shapes := filepath.Join(root, "src", "Shapes.cs")
	g := backends.NewStaticGraph(backends.BackendTreeSitter,
		backends.Node{ID: "IShape", Name: "IShape", Kind: "interface", Location: backends.Location{Path: shapes, Line: 3}},
		backends.Node{ID: "Circle", Name: "Circle", Kind: "class", Bases: []string{"IShape"}, Location: backends.Location{Path: shapes, Line: 8}},
		backends.Node{ID: "Circle.Area", Name: "Area", Kind: "method", Container: "Circle", Location: backends.Location{Path: shapes, Line: 10}},
		backends.Node{ID: "Report.Print", Name: "Print", Kind: "method", Container: "Report", Location: backends.Location{Path: filepath.Join(root, "src", "Report.cs"), Line: 5}},
	)
	g.References["Area"] = []backends.Reference{
		{SymbolID: "Report.Print", Kind: "call", Location: backends.Location{Path: filepath.Join(root, "src", "Report.cs"), Line: 7}},
	}
	return g
}

// newTestServer creates a server over testGraph in a temp directory.
// mutate may adjust the options before the server is built.
func newTestServer(t *testing.T, mutate func(*Options)) *MCPServer {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		Root:   root,
		Runner: runner.NewMockRunner(),
		Graph:  testGraph(root),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewMCPServer(version.Version, opts, slogutil.NewDiscardLogger())
}

// sendRequest sends a request and returns the response
func sendRequest(t *testing.T, server *MCPServer, method string, id int, params interface{}) *MCPMessage {
	t.Helper()

	request := MCPMessage{
		Jsonrpc: "2.0",
		Id:      json.RawMessage(strconv.Itoa(id)),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("Failed to marshal params: %v", err)
		}
		request.Params = raw
	}

	requestBytes, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	requestBytes = append(requestBytes, '\n')

	server.SetStdin(bytes.NewReader(requestBytes))
	server.SetStdout(&bytes.Buffer{})

	msg, err := server.readMessage()
	if err != nil && err != io.EOF {
		t.Fatalf("Failed to read message: %v", err)
	}
	return server.handleMessage(context.Background(), msg)
}

// callTool invokes tools/call and decodes the envelope of a successful
// result. Error responses are returned as the second value.
func callTool(t *testing.T, server *MCPServer, name string, args map[string]interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()
	resp := sendRequest(t, server, "tools/call", 1, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if resp == nil {
		t.Fatal("Response should not be nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result should be a map, got %T", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("Result should carry one content block, got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type = %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		t.Fatalf("content is not JSON: %v\n%s", err, text)
	}
	return envelope, nil
}

func dataOf(t *testing.T, env map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := env["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("envelope data should be an object, got %#v", env["data"])
	}
	return data
}
