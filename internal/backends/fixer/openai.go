// Package fixer asks an OpenAI-compatible chat model to repair build errors.
package fixer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"aura/internal/backends"
	"aura/internal/config"
	auraerrors "aura/internal/errors"
	"aura/internal/slogutil"
)

const systemPrompt = `You repair compiler errors. Reply with the complete corrected content of each file you change, ` +
	`one fenced code block per file, in the same order the files were given. Do not explain.`

// OpenAIFixer implements backends.Fixer over the chat completions API.
type OpenAIFixer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a fixer from config. The API key is read from the environment
// variable named by cfg.APIKeyEnv; a local endpoint set through BaseURL may
// run without one.
func New(cfg config.FixerConfig, logger *slog.Logger) (*OpenAIFixer, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, auraerrors.NewBackendUnavailableError("fixer",
			fmt.Sprintf("set %s or fixer.baseURL in .aura/config.json", cfg.APIKeyEnv))
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	logger.Info("Initializing fixer", "model", cfg.Model, "baseURL", clientCfg.BaseURL)
	return &OpenAIFixer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  logger,
	}, nil
}

// Fix implements backends.Fixer.
func (f *OpenAIFixer) Fix(ctx context.Context, req backends.FixRequest) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.logger.Debug("Requesting fix", "model", f.model, "files", len(req.Files), "errors", len(req.Errors))
	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(req)},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", auraerrors.NewOperationError("fixer request", err)
	}
	if len(resp.Choices) == 0 {
		return "", auraerrors.NewOperationError("fixer request", fmt.Errorf("model returned no choices"))
	}
	f.logger.Debug("Fix received", "finishReason", string(resp.Choices[0].FinishReason))
	return resp.Choices[0].Message.Content, nil
}

// Prompt renders the user message for req.
func Prompt(req backends.FixRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s build failed.\n\n", req.Ecosystem)
	if len(req.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range req.Errors {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString("Build output:\n```\n")
	b.WriteString(strings.TrimRight(req.BuildOutput, "\n"))
	b.WriteString("\n```\n")
	for _, file := range req.Files {
		fmt.Fprintf(&b, "\nFile: %s\n```\n%s\n```\n", file.Path, strings.TrimRight(file.Content, "\n"))
	}
	return b.String()
}
