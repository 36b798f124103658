package fixer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aura/internal/backends"
	"aura/internal/config"
	auraerrors "aura/internal/errors"
)

func TestNew_RequiresKeyOrEndpoint(t *testing.T) {
	t.Setenv("AURA_TEST_KEY", "")
	_, err := New(config.FixerConfig{Model: "m", APIKeyEnv: "AURA_TEST_KEY"}, nil)
	if !auraerrors.Is(err, auraerrors.BackendUnavailable) {
		t.Errorf("error = %v, want BACKEND_UNAVAILABLE", err)
	}
}

func TestOpenAIFixer_Fix(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"` + "```go\\npackage main\\n```" + `"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	f, err := New(config.FixerConfig{Model: "local-model", BaseURL: srv.URL + "/", APIKeyEnv: "AURA_UNSET_KEY", TimeoutSeconds: 5}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := f.Fix(context.Background(), backends.FixRequest{
		Ecosystem:   "go",
		BuildOutput: "main.go:3:1: undefined: x",
		Errors:      []string{"main.go:3:1: undefined: x"},
		Files:       []backends.FixFile{{Path: "main.go", Content: "package main\nx\n"}},
	})
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	if out != "```go\npackage main\n```" {
		t.Errorf("Fix() = %q", out)
	}
	if got.Model != "local-model" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(got.Messages[1].Content, "File: main.go") {
		t.Errorf("user prompt missing file: %s", got.Messages[1].Content)
	}
}

func TestOpenAIFixer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f, err := New(config.FixerConfig{Model: "m", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fix(context.Background(), backends.FixRequest{Ecosystem: "go"}); !auraerrors.Is(err, auraerrors.ToolExecution) {
		t.Errorf("error = %v, want TOOL_EXECUTION", err)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(backends.FixRequest{
		Ecosystem:   "dotnet",
		BuildOutput: "Foo.cs(1,1): error CS1002: ; expected\n",
		Errors:      []string{"Foo.cs:1:1 CS1002"},
		Files:       []backends.FixFile{{Path: "Foo.cs", Content: "class Foo {}\n"}},
	})
	for _, want := range []string{"The dotnet build failed.", "- Foo.cs:1:1 CS1002", "CS1002: ; expected\n```", "File: Foo.cs\n```\nclass Foo {}\n```"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}
