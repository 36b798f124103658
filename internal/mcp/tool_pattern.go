package mcp

import (
	"context"
	"fmt"

	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/operations"
	"aura/internal/patterns"
)

type patternListArgs struct {
	Language string `json:"language"`
	Tag      string `json:"tag"`
}

type patternGetArgs struct {
	Name string `json:"name" validate:"required"`
}

func (s *MCPServer) patternRouter() *operations.Router {
	return operations.NewRouter("pattern", s.logger).
		Handle("list", operations.Typed(s.patternList)).
		Handle("get", operations.Typed(s.patternGet))
}

func (s *MCPServer) patterns() (*patterns.Registry, error) {
	if s.opts.Patterns == nil {
		return nil, auraerrors.NewBackendUnavailableError("pattern registry", "")
	}
	return s.opts.Patterns, nil
}

func (s *MCPServer) patternList(_ context.Context, call operations.Call, args *patternListArgs) (*envelope.Response, error) {
	reg, err := s.patterns()
	if err != nil {
		return nil, err
	}
	lang := ""
	if args.Language != "" {
		lang = string(call.Language)
	}
	list := reg.List(patterns.Filter{Language: lang, Tag: args.Tag})
	// Listings omit pattern bodies.
	for i := range list {
		list[i].Content = ""
	}
	return envelope.Operational(map[string]interface{}{"patterns": list, "count": len(list)}), nil
}

func (s *MCPServer) patternGet(_ context.Context, _ operations.Call, args *patternGetArgs) (*envelope.Response, error) {
	reg, err := s.patterns()
	if err != nil {
		return nil, err
	}
	p, ok := reg.Get(args.Name)
	if !ok {
		return envelope.Operational(map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("Pattern '%s' not found", args.Name),
		}), nil
	}
	return envelope.Operational(map[string]interface{}{"success": true, "pattern": p}), nil
}
