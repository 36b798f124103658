package mcp

import (
	"context"

	"aura/internal/backends"
	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/language"
	"aura/internal/operations"
	"aura/internal/rename"
	"aura/internal/structural"
)

// backendCompiler labels results of the compiler-level Refactorer.
const backendCompiler = "compiler"

type renameArgs struct {
	SymbolName   string            `json:"symbolName" validate:"required"`
	NewName      string            `json:"newName" validate:"required,nefield=SymbolName"`
	SolutionPath string            `json:"solutionPath" validate:"required"`
	Kind         string            `json:"kind"`
	Path         string            `json:"path"`
	Execute      bool              `json:"execute"`
	Fingerprints map[string]string `json:"fingerprints"`
}

type structuralArgs struct {
	SymbolName    string `json:"symbolName" validate:"required"`
	Kind          string `json:"kind"`
	Path          string `json:"path"`
	InterfaceName string `json:"interfaceName"`
	Execute       bool   `json:"execute"`
}

type changeSignatureArgs struct {
	SymbolName   string                   `json:"symbolName" validate:"required"`
	SolutionPath string                   `json:"solutionPath" validate:"required"`
	FilePath     string                   `json:"filePath"`
	Parameters   []map[string]interface{} `json:"parameters" validate:"required"`
	Execute      bool                     `json:"execute"`
}

type extractArgs struct {
	SolutionPath string `json:"solutionPath" validate:"required"`
	FilePath     string `json:"filePath" validate:"required"`
	Start        *int   `json:"start" validate:"required,min=0"`
	End          *int   `json:"end" validate:"required,min=0"`
	NewName      string `json:"newName" validate:"required"`
	Execute      bool   `json:"execute"`
}

type scriptRenameArgs struct {
	ProjectPath string `json:"projectPath" validate:"required"`
	FilePath    string `json:"filePath" validate:"required"`
	Offset      *int   `json:"offset" validate:"required,min=0"`
	NewName     string `json:"newName" validate:"required"`
	Execute     bool   `json:"execute"`
}

type scriptExtractArgs struct {
	ProjectPath string `json:"projectPath" validate:"required"`
	FilePath    string `json:"filePath" validate:"required"`
	Start       *int   `json:"start" validate:"required,min=0"`
	End         *int   `json:"end" validate:"required,min=0"`
	NewName     string `json:"newName" validate:"required"`
	Execute     bool   `json:"execute"`
}

func (s *MCPServer) refactorRouter() *operations.Router {
	scripted := []language.Tag{language.Python, language.TypeScript}
	return operations.NewRouter("refactor", s.logger).
		Handle("rename", operations.Typed(s.refactorRename)).
		Handle("safe_delete", operations.Typed(s.refactorSafeDelete)).
		Handle("move_type_to_file", operations.Typed(s.refactorMoveType)).
		Handle("extract_interface", operations.Typed(s.refactorExtractInterface)).
		Handle("change_signature", operations.Typed(s.refactorChangeSignature)).
		Handle("extract_method", operations.Typed(s.refactorExtract)).
		Handle("extract_variable", operations.Typed(s.refactorExtract)).
		HandleLanguage("rename", operations.Typed(s.refactorScriptRename), scripted...).
		HandleLanguage("extract_method", operations.Typed(s.refactorScriptExtract), scripted...).
		HandleLanguage("extract_variable", operations.Typed(s.refactorScriptExtract), scripted...)
}

func (s *MCPServer) refactorRename(ctx context.Context, _ operations.Call, args *renameArgs) (*envelope.Response, error) {
	sc, err := s.writeScope(args.Path)
	if err != nil {
		return nil, err
	}
	_, backend, err := s.declarations(ctx, sc, args.SymbolName)
	if err != nil {
		return nil, err
	}

	analyzer := rename.NewAnalyzer(sc.graph, nil, s.logger)
	req := rename.Request{
		Symbol:  args.SymbolName,
		NewName: args.NewName,
		Kind:    args.Kind,
		Path:    sc.target,
	}

	if !args.Execute {
		br, err := analyzer.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		return envelope.New().
			Data(br).
			Backend(string(backend)).
			SuggestCall("refactor", map[string]interface{}{
				"operation":    "rename",
				"symbolName":   args.SymbolName,
				"newName":      args.NewName,
				"solutionPath": args.SolutionPath,
				"execute":      true,
				"fingerprints": br.Fingerprints,
			}, "apply the plan once the blast radius has been reviewed").
			Build(), nil
	}

	res, err := analyzer.Execute(ctx, req, args.Fingerprints)
	if err != nil {
		return nil, err
	}
	s.workspaces.Invalidate(sc.root)
	b := envelope.New().Data(res).Backend(string(backend))
	if !res.Success {
		b.ErrorMessage(res.Error)
	}
	return b.Build(), nil
}

func (s *MCPServer) structuralTarget(args *structuralArgs) (scope, structural.Target, error) {
	sc, err := s.writeScope(args.Path)
	if err != nil {
		return scope{}, structural.Target{}, err
	}
	return sc, structural.Target{Symbol: args.SymbolName, Kind: args.Kind, Path: sc.target}, nil
}

// finishWrite drops cached parse state after a mutation.
func (s *MCPServer) finishWrite(sc scope, executed bool) {
	if executed {
		s.workspaces.Invalidate(sc.root)
	}
}

func (s *MCPServer) refactorSafeDelete(ctx context.Context, _ operations.Call, args *structuralArgs) (*envelope.Response, error) {
	sc, t, err := s.structuralTarget(args)
	if err != nil {
		return nil, err
	}
	res, err := structural.SafeDelete(ctx, sc.graph, t, args.Execute)
	if err != nil {
		return nil, err
	}
	s.finishWrite(sc, res.Deleted)
	b := envelope.New().Data(res)
	if !res.Safe {
		b.Warning("symbol is still referenced; nothing was deleted")
	}
	return b.Build(), nil
}

func (s *MCPServer) refactorMoveType(ctx context.Context, _ operations.Call, args *structuralArgs) (*envelope.Response, error) {
	sc, t, err := s.structuralTarget(args)
	if err != nil {
		return nil, err
	}
	res, err := structural.MoveTypeToFile(ctx, sc.graph, t, args.Execute)
	if err != nil {
		return nil, err
	}
	s.finishWrite(sc, res.Moved)
	res.From, res.To = s.out(sc, res.From), s.out(sc, res.To)
	return envelope.New().Data(res).Build(), nil
}

func (s *MCPServer) refactorExtractInterface(ctx context.Context, _ operations.Call, args *structuralArgs) (*envelope.Response, error) {
	sc, t, err := s.structuralTarget(args)
	if err != nil {
		return nil, err
	}
	res, err := structural.ExtractInterface(ctx, sc.graph, t, args.InterfaceName, args.Execute)
	if err != nil {
		return nil, err
	}
	s.finishWrite(sc, res.Written)
	b := envelope.New().Data(res)
	if res.Warning != "" {
		b.Warning(res.Warning)
	}
	return b.Build(), nil
}

func (s *MCPServer) refactorer() (backends.Refactorer, error) {
	if s.opts.Refactorer == nil {
		return nil, auraerrors.NewBackendUnavailableError("compiler refactoring backend",
			"this operation needs a compiler-level refactoring service for the solution")
	}
	return s.opts.Refactorer, nil
}

func (s *MCPServer) refactorChangeSignature(ctx context.Context, call operations.Call, args *changeSignatureArgs) (*envelope.Response, error) {
	r, err := s.refactorer()
	if err != nil {
		return nil, err
	}
	return s.refactorResult(r.Refactor(ctx, backends.RefactorRequest{
		Operation:    call.Operation,
		Language:     string(call.Language),
		SymbolName:   args.SymbolName,
		SolutionPath: s.abs(args.SolutionPath),
		FilePath:     s.abs(args.FilePath),
		Preview:      !args.Execute,
		Options:      map[string]any{"parameters": args.Parameters},
	}))
}

func (s *MCPServer) refactorExtract(ctx context.Context, call operations.Call, args *extractArgs) (*envelope.Response, error) {
	if err := checkSelection(*args.Start, *args.End); err != nil {
		return nil, err
	}
	r, err := s.refactorer()
	if err != nil {
		return nil, err
	}
	return s.refactorResult(r.Refactor(ctx, backends.RefactorRequest{
		Operation:    call.Operation,
		Language:     string(call.Language),
		NewName:      args.NewName,
		SolutionPath: s.abs(args.SolutionPath),
		FilePath:     s.abs(args.FilePath),
		Start:        *args.Start,
		End:          *args.End,
		Preview:      !args.Execute,
	}))
}

func (s *MCPServer) refactorScriptRename(ctx context.Context, call operations.Call, args *scriptRenameArgs) (*envelope.Response, error) {
	b, err := s.scripts()
	if err != nil {
		return nil, err
	}
	resp, err := s.scriptResult(b.Refactor(ctx, backends.RefactorRequest{
		Operation:   call.Operation,
		Language:    string(call.Language),
		NewName:     args.NewName,
		ProjectPath: s.abs(args.ProjectPath),
		FilePath:    s.abs(args.FilePath),
		Offset:      *args.Offset,
		Preview:     !args.Execute,
	}))
	if err == nil && args.Execute {
		s.workspaces.Invalidate(s.root)
	}
	return resp, err
}

func (s *MCPServer) refactorScriptExtract(ctx context.Context, call operations.Call, args *scriptExtractArgs) (*envelope.Response, error) {
	if err := checkSelection(*args.Start, *args.End); err != nil {
		return nil, err
	}
	b, err := s.scripts()
	if err != nil {
		return nil, err
	}
	resp, err := s.scriptResult(b.Refactor(ctx, backends.RefactorRequest{
		Operation:   call.Operation,
		Language:    string(call.Language),
		NewName:     args.NewName,
		ProjectPath: s.abs(args.ProjectPath),
		FilePath:    s.abs(args.FilePath),
		Start:       *args.Start,
		End:         *args.End,
		Preview:     !args.Execute,
	}))
	if err == nil && args.Execute {
		s.workspaces.Invalidate(s.root)
	}
	return resp, err
}

func checkSelection(start, end int) error {
	if end <= start {
		return auraerrors.NewInvalidArgumentError("end", "must be greater than start")
	}
	return nil
}

func (s *MCPServer) refactorResult(res *backends.RefactorResult, err error) (*envelope.Response, error) {
	return engineResult(backendCompiler, res, err)
}

func (s *MCPServer) scriptResult(res *backends.RefactorResult, err error) (*envelope.Response, error) {
	return engineResult(string(backends.BackendScript), res, err)
}

// engineResult wraps a refactoring engine's outcome. An engine that ran
// but refused the change is a payload, not a call failure.
func engineResult(backend string, res *backends.RefactorResult, err error) (*envelope.Response, error) {
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(res).Backend(backend)
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "refactoring failed"
		}
		b.ErrorMessage(msg)
	}
	return b.Build(), nil
}
