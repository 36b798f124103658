package mcp

import (
	"context"

	"aura/internal/backends"
	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/generate"
	"aura/internal/operations"
)

type generateArgs struct {
	Name      string            `json:"name" validate:"required"`
	Kind      string            `json:"kind" validate:"omitempty,oneof=class interface record struct"`
	Namespace string            `json:"namespace"`
	Module    string            `json:"module"`
	Directory string            `json:"directory"`
	Members   []generate.Member `json:"members" validate:"dive"`
	Execute   bool              `json:"execute"`
}

func (s *MCPServer) generateRouter() *operations.Router {
	return operations.NewRouter("generate", s.logger).
		Handle("type", operations.Typed(s.generateType)).
		Handle("tests", operations.Typed(s.generateTests))
}

func (s *MCPServer) generator() (*generate.Generator, error) {
	if s.opts.Generator == nil {
		return nil, auraerrors.NewBackendUnavailableError("code generator", "")
	}
	return s.opts.Generator, nil
}

func (s *MCPServer) generateRequest(call operations.Call, args *generateArgs) generate.Request {
	dir := s.root
	if args.Directory != "" {
		dir = s.abs(args.Directory)
	}
	return generate.Request{
		Language:  call.Language,
		Name:      args.Name,
		Kind:      args.Kind,
		Namespace: args.Namespace,
		Module:    args.Module,
		Dir:       dir,
		Members:   args.Members,
	}
}

func (s *MCPServer) generateType(_ context.Context, call operations.Call, args *generateArgs) (*envelope.Response, error) {
	g, err := s.generator()
	if err != nil {
		return nil, err
	}
	f, err := g.Type(s.generateRequest(call, args))
	if err != nil {
		return nil, err
	}
	return s.emit(f, args.Execute, envelope.New())
}

// generateTests scaffolds tests for a type. Without explicit members the
// type's members are read from the code graph.
func (s *MCPServer) generateTests(ctx context.Context, call operations.Call, args *generateArgs) (*envelope.Response, error) {
	g, err := s.generator()
	if err != nil {
		return nil, err
	}
	req := s.generateRequest(call, args)
	b := envelope.New()

	if len(req.Members) == 0 {
		sc, err := s.readScope("")
		if err != nil {
			return nil, err
		}
		members, backend, err := backends.Resolve(ctx, sc.graph, "getTypeMembers", func(cg backends.CodeGraph) ([]backends.Node, error) {
			return cg.GetTypeMembers(ctx, args.Name)
		})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.WarningWithCode("MEMBERS_UNAVAILABLE", "could not read the type's members: "+err.Error())
		case len(members) == 0:
			b.Warning("no members found for " + args.Name + "; generated an empty scaffold")
		default:
			b.Backend(string(backend))
			for _, m := range members {
				req.Members = append(req.Members, memberOf(m))
			}
		}
	}

	f, err := g.Tests(req)
	if err != nil {
		return nil, err
	}
	return s.emit(f, args.Execute, b)
}

func memberOf(n backends.Node) generate.Member {
	kind := "property"
	switch n.Kind {
	case "method", "function", "constructor":
		kind = "method"
	}
	return generate.Member{Name: n.Name, Kind: kind}
}

// emit previews f, or writes it when execute is set.
func (s *MCPServer) emit(f *generate.File, execute bool, b *envelope.Builder) (*envelope.Response, error) {
	if execute {
		if err := generate.Write(f); err != nil {
			return nil, err
		}
		s.workspaces.Invalidate(s.root)
	} else if f.Exists {
		b.Warning(f.Path + " already exists; execute would fail")
	}
	return b.Data(f).Build(), nil
}
