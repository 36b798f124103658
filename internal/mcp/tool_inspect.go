package mcp

import (
	"context"

	"aura/internal/backends"
	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/operations"
)

type typeArgs struct {
	TypeName string `json:"typeName" validate:"required"`
	Path     string `json:"path"`
}

type fileArgs struct {
	FilePath string `json:"filePath" validate:"required"`
}

var typeKinds = map[string]bool{
	"class": true, "interface": true, "struct": true, "record": true, "enum": true, "type": true,
}

func (s *MCPServer) inspectRouter() *operations.Router {
	return operations.NewRouter("inspect", s.logger).
		Handle("type_members", operations.Typed(s.inspectTypeMembers)).
		Handle("file_symbols", operations.Typed(s.inspectFileSymbols)).
		Handle("find_type", operations.Typed(s.inspectFindType))
}

// types resolves the declarations of a type name, or NOT_FOUND.
func (s *MCPServer) types(ctx context.Context, sc scope, name string) ([]backends.Node, backends.BackendID, error) {
	nodes, backend, err := backends.Resolve(ctx, sc.graph, "findNodes", func(g backends.CodeGraph) ([]backends.Node, error) {
		found, err := g.FindNodes(ctx, backends.NodeQuery{Name: name, Path: sc.target, Exact: true})
		if err != nil {
			return nil, err
		}
		out := found[:0]
		for _, n := range found {
			if typeKinds[n.Kind] {
				out = append(out, n)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, "", err
	}
	if len(nodes) == 0 {
		return nil, backend, auraerrors.NewNotFoundError("Type", name)
	}
	return nodes, backend, nil
}

func (s *MCPServer) inspectTypeMembers(ctx context.Context, _ operations.Call, args *typeArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	decls, _, err := s.types(ctx, sc, args.TypeName)
	if err != nil {
		return nil, err
	}
	members, backend, err := backends.Resolve(ctx, sc.graph, "getTypeMembers", func(g backends.CodeGraph) ([]backends.Node, error) {
		return g.GetTypeMembers(ctx, args.TypeName)
	})
	if err != nil {
		return nil, err
	}
	return envelope.New().
		Data(map[string]interface{}{
			"type":    s.outNodes(sc, decls)[0],
			"members": s.outNodes(sc, members),
			"count":   len(members),
		}).
		Backend(string(backend)).
		Build(), nil
}

func (s *MCPServer) inspectFileSymbols(ctx context.Context, _ operations.Call, args *fileArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.FilePath)
	if err != nil {
		return nil, err
	}
	nodes, backend, err := backends.Resolve(ctx, sc.graph, "findNodes", func(g backends.CodeGraph) ([]backends.Node, error) {
		found, err := g.FindNodes(ctx, backends.NodeQuery{Path: sc.target})
		if err != nil {
			return nil, err
		}
		out := found[:0]
		for _, n := range found {
			if n.Location.Path == sc.target {
				out = append(out, n)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, auraerrors.NewNotFoundError("File", args.FilePath)
	}
	return envelope.New().
		Data(map[string]interface{}{"filePath": args.FilePath, "symbols": s.outNodes(sc, nodes), "count": len(nodes)}).
		Backend(string(backend)).
		Build(), nil
}

func (s *MCPServer) inspectFindType(ctx context.Context, _ operations.Call, args *typeArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	nodes, backend, err := s.types(ctx, sc, args.TypeName)
	if err != nil {
		return nil, err
	}
	return envelope.New().
		Data(map[string]interface{}{"typeName": args.TypeName, "types": s.outNodes(sc, nodes), "count": len(nodes)}).
		Backend(string(backend)).
		Build(), nil
}
