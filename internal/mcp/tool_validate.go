package mcp

import (
	"context"

	"aura/internal/buildfix"
	"aura/internal/envelope"
	"aura/internal/operations"
)

type validateArgs struct {
	Path          string `json:"path"`
	Ecosystem     string `json:"ecosystem" validate:"omitempty,oneof=dotnet cargo go npm"`
	MaxIterations int    `json:"maxIterations" validate:"min=0"`
}

func (s *MCPServer) validateRouter() *operations.Router {
	return operations.NewRouter("validate", s.logger).
		Handle("compilation", operations.Typed(s.validateCompilation)).
		Handle("tests", operations.Typed(s.validateTests)).
		Handle("build_fix", operations.Typed(s.validateBuildFix))
}

func (s *MCPServer) loop() *buildfix.Loop {
	return buildfix.NewLoop(s.opts.Runner, s.opts.Fixer, s.opts.Recorder, buildfix.OptionsFromConfig(s.cfg.BuildFix), s.logger)
}

// buildRequest resolves the project directory and drops the cached
// workspace state for it, so structural queries after the build see the
// files the build saw.
func (s *MCPServer) buildRequest(args *validateArgs) buildfix.Request {
	root := s.root
	if args.Path != "" {
		root = s.abs(args.Path)
	}
	s.workspaces.InvalidateAll()
	return buildfix.Request{Root: root, Ecosystem: args.Ecosystem, MaxIterations: args.MaxIterations}
}

func (s *MCPServer) validateCompilation(ctx context.Context, _ operations.Call, args *validateArgs) (*envelope.Response, error) {
	res, err := s.loop().Compile(ctx, s.buildRequest(args))
	if err != nil {
		return nil, err
	}
	return checkResponse(res), nil
}

func (s *MCPServer) validateTests(ctx context.Context, _ operations.Call, args *validateArgs) (*envelope.Response, error) {
	res, err := s.loop().Test(ctx, s.buildRequest(args))
	if err != nil {
		return nil, err
	}
	return checkResponse(res), nil
}

func checkResponse(res *buildfix.CheckResult) *envelope.Response {
	b := envelope.New().Data(res)
	if !res.Passed && len(res.Errors) == 0 {
		b.Warning("command failed without parseable diagnostics; see output")
	}
	return b.Build()
}

func (s *MCPServer) validateBuildFix(ctx context.Context, _ operations.Call, args *validateArgs) (*envelope.Response, error) {
	res, err := s.loop().Run(ctx, s.buildRequest(args))
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(res)
	if !res.Success {
		b.WarningWithCode(res.Reason, "build-fix loop did not reach a clean build")
		if res.Reason == buildfix.ReasonNoFixerAvailable {
			b.SuggestCall("validate", map[string]interface{}{
				"operation": "compilation",
				"path":      args.Path,
			}, "inspect the remaining errors; enable fixer in .aura/config.json for automatic fixes")
		}
	}
	return b.Build(), nil
}
