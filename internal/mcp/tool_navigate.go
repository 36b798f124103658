package mcp

import (
	"context"

	"aura/internal/backends"
	"aura/internal/backends/script"
	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/language"
	"aura/internal/operations"
)

type symbolArgs struct {
	SymbolName string `json:"symbolName" validate:"required"`
	Path       string `json:"path"`
}

// positionArgs address a symbol by character offset, for backends that
// resolve positions rather than names.
type positionArgs struct {
	ProjectPath string `json:"projectPath" validate:"required"`
	FilePath    string `json:"filePath" validate:"required"`
	Offset      *int   `json:"offset" validate:"required,min=0"`
}

func (s *MCPServer) navigateRouter() *operations.Router {
	return operations.NewRouter("navigate", s.logger).
		Handle("callers", operations.Typed(s.navigateCallers)).
		Handle("implementations", operations.Typed(s.navigateImplementations)).
		Handle("derived_types", operations.Typed(s.navigateDerivedTypes)).
		Handle("references", operations.Typed(s.navigateReferences)).
		Handle("definition", operations.Typed(s.navigateDefinition)).
		HandleLanguage("references", operations.Typed(s.navigateReferencesAt), language.Python, language.TypeScript).
		HandleLanguage("definition", operations.Typed(s.navigateDefinitionAt), language.Python, language.TypeScript)
}

// declarations resolves the declarations of a symbol, or NOT_FOUND.
func (s *MCPServer) declarations(ctx context.Context, sc scope, name string) ([]backends.Node, backends.BackendID, error) {
	nodes, backend, err := backends.Resolve(ctx, sc.graph, "findNodes", func(g backends.CodeGraph) ([]backends.Node, error) {
		return g.FindNodes(ctx, backends.NodeQuery{Name: name, Path: sc.target, Exact: true})
	})
	if err != nil {
		return nil, "", err
	}
	if len(nodes) == 0 {
		return nil, backend, auraerrors.NewNotFoundError("Symbol", name)
	}
	return nodes, backend, nil
}

// relation runs a node-valued graph query for a symbol that must exist.
func (s *MCPServer) relation(ctx context.Context, args *symbolArgs, op, key string, fn func(backends.CodeGraph) ([]backends.Node, error)) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.declarations(ctx, sc, args.SymbolName); err != nil {
		return nil, err
	}
	nodes, backend, err := backends.Resolve(ctx, sc.graph, op, fn)
	if err != nil {
		return nil, err
	}
	nodes = s.outNodes(sc, nodes)
	return envelope.New().
		Data(map[string]interface{}{"symbol": args.SymbolName, key: nodes, "count": len(nodes)}).
		Backend(string(backend)).
		Build(), nil
}

func (s *MCPServer) navigateCallers(ctx context.Context, _ operations.Call, args *symbolArgs) (*envelope.Response, error) {
	return s.relation(ctx, args, "findCallers", "callers", func(g backends.CodeGraph) ([]backends.Node, error) {
		return g.FindCallers(ctx, args.SymbolName)
	})
}

func (s *MCPServer) navigateImplementations(ctx context.Context, _ operations.Call, args *symbolArgs) (*envelope.Response, error) {
	return s.relation(ctx, args, "findImplementations", "implementations", func(g backends.CodeGraph) ([]backends.Node, error) {
		return g.FindImplementations(ctx, args.SymbolName)
	})
}

func (s *MCPServer) navigateDerivedTypes(ctx context.Context, _ operations.Call, args *symbolArgs) (*envelope.Response, error) {
	return s.relation(ctx, args, "findDerivedTypes", "derivedTypes", func(g backends.CodeGraph) ([]backends.Node, error) {
		return g.FindDerivedTypes(ctx, args.SymbolName)
	})
}

func (s *MCPServer) navigateReferences(ctx context.Context, _ operations.Call, args *symbolArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.declarations(ctx, sc, args.SymbolName); err != nil {
		return nil, err
	}
	refs, backend, err := backends.Resolve(ctx, sc.graph, "findReferences", func(g backends.CodeGraph) ([]backends.Reference, error) {
		return g.FindReferences(ctx, args.SymbolName)
	})
	if err != nil {
		return nil, err
	}
	refs = s.outRefs(sc, refs)
	return envelope.New().
		Data(map[string]interface{}{"symbol": args.SymbolName, "references": refs, "count": len(refs)}).
		Backend(string(backend)).
		Build(), nil
}

func (s *MCPServer) navigateDefinition(ctx context.Context, _ operations.Call, args *symbolArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	nodes, backend, err := s.declarations(ctx, sc, args.SymbolName)
	if err != nil {
		return nil, err
	}
	nodes = s.outNodes(sc, nodes)
	b := envelope.New().
		Data(map[string]interface{}{"symbol": args.SymbolName, "definitions": nodes, "count": len(nodes)}).
		Backend(string(backend))
	if len(nodes) > 1 {
		b.Warning("symbol is declared more than once; pass path or kind to narrow it")
	}
	return b.Build(), nil
}

func (s *MCPServer) scripts() (*script.Backend, error) {
	if s.opts.Scripts == nil {
		return nil, auraerrors.NewBackendUnavailableError("script backend", "configure languages.<name>.interpreter and script")
	}
	return s.opts.Scripts, nil
}

func (s *MCPServer) navigateReferencesAt(ctx context.Context, call operations.Call, args *positionArgs) (*envelope.Response, error) {
	b, err := s.scripts()
	if err != nil {
		return nil, err
	}
	refs, err := b.FindReferencesAt(ctx, string(call.Language), s.abs(args.ProjectPath), s.abs(args.FilePath), *args.Offset)
	if err != nil {
		return nil, err
	}
	return envelope.New().
		Data(map[string]interface{}{"filePath": args.FilePath, "offset": *args.Offset, "references": refs, "count": len(refs)}).
		Backend(string(backends.BackendScript)).
		Build(), nil
}

func (s *MCPServer) navigateDefinitionAt(ctx context.Context, call operations.Call, args *positionArgs) (*envelope.Response, error) {
	b, err := s.scripts()
	if err != nil {
		return nil, err
	}
	locs, err := b.FindDefinitionAt(ctx, string(call.Language), s.abs(args.ProjectPath), s.abs(args.FilePath), *args.Offset)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, auraerrors.NewNotFoundError("Definition", args.FilePath)
	}
	return envelope.New().
		Data(map[string]interface{}{"filePath": args.FilePath, "offset": *args.Offset, "definitions": locs, "count": len(locs)}).
		Backend(string(backends.BackendScript)).
		Build(), nil
}
