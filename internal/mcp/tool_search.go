package mcp

import (
	"context"
	"regexp"

	"aura/internal/backends"
	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/language"
	"aura/internal/operations"
	"aura/internal/search"
)

type searchArgs struct {
	Query           string `json:"query" validate:"required"`
	Path            string `json:"path"`
	Language        string `json:"language"`
	Kind            string `json:"kind"`
	Exact           bool   `json:"exact"`
	CaseInsensitive bool   `json:"caseInsensitive"`
	Limit           int    `json:"limit" validate:"min=0"`
}

func (s *MCPServer) searchRouter() *operations.Router {
	return operations.NewRouter("search", s.logger).
		Handle("semantic", operations.Typed(s.searchSemantic)).
		Handle("text", operations.Typed(s.searchText)).
		Handle("symbols", operations.Typed(s.searchSymbols))
}

func (s *MCPServer) searchSemantic(ctx context.Context, call operations.Call, args *searchArgs) (*envelope.Response, error) {
	if s.opts.Index == nil {
		fallback := *args
		fallback.Query = regexp.QuoteMeta(args.Query)
		fallback.CaseInsensitive = true
		resp, err := s.searchText(ctx, call, &fallback)
		if err != nil {
			return nil, err
		}
		resp.Warnings = append(resp.Warnings, envelope.Warning{
			Code:    "SEMANTIC_UNAVAILABLE",
			Message: "no semantic index is configured; returned literal text matches",
		})
		return resp, nil
	}

	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	limit := args.Limit
	if limit == 0 {
		limit = s.cfg.Search.MaxResults
	}
	chunks, err := s.opts.Index.Query(ctx, args.Query, backends.QueryOptions{
		Limit:    limit,
		Language: args.Language,
		Path:     sc.target,
	})
	if err != nil {
		return nil, auraerrors.NewOperationError("semantic search", err)
	}
	for i := range chunks {
		chunks[i].Path = s.out(sc, chunks[i].Path)
	}
	return envelope.New().
		Data(map[string]interface{}{"query": args.Query, "chunks": chunks, "count": len(chunks)}).
		Backend("semantic").
		Build(), nil
}

func (s *MCPServer) searchText(ctx context.Context, _ operations.Call, args *searchArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	tag, err := languageFilter(args.Language)
	if err != nil {
		return nil, err
	}
	opts := search.Options{
		Ignore:      s.cfg.Search.Ignore,
		MaxFileSize: int64(s.cfg.Search.MaxFileSizeBytes),
		MaxResults:  s.cfg.Search.MaxResults,
	}
	if args.Limit > 0 {
		opts.MaxResults = args.Limit
	}

	res, err := search.Text(ctx, sc.root, search.Query{
		Pattern:         args.Query,
		Path:            sc.target,
		Language:        tag,
		CaseInsensitive: args.CaseInsensitive,
	}, opts)
	if err != nil {
		return nil, err
	}
	for i := range res.Matches {
		res.Matches[i].Path = s.out(sc, res.Matches[i].Path)
	}

	b := envelope.New().Data(res).Backend("text")
	if res.Truncated {
		b.WithTruncation(true, len(res.Matches), len(res.Matches), "max-results")
	}
	return b.Build(), nil
}

func (s *MCPServer) searchSymbols(ctx context.Context, _ operations.Call, args *searchArgs) (*envelope.Response, error) {
	sc, err := s.readScope(args.Path)
	if err != nil {
		return nil, err
	}
	tag, err := languageFilter(args.Language)
	if err != nil {
		return nil, err
	}
	limit := args.Limit
	if limit == 0 {
		limit = s.cfg.Search.MaxResults
	}

	// The limit is applied after the language filter.
	nodes, backend, err := backends.Resolve(ctx, sc.graph, "findNodes", func(g backends.CodeGraph) ([]backends.Node, error) {
		return g.FindNodes(ctx, backends.NodeQuery{
			Name:  args.Query,
			Kind:  args.Kind,
			Path:  sc.target,
			Exact: args.Exact,
		})
	})
	if err != nil {
		return nil, err
	}
	if tag != "" {
		kept := nodes[:0]
		for _, n := range nodes {
			if t, ok := language.FromPath(n.Location.Path); ok && t == tag {
				kept = append(kept, n)
			}
		}
		nodes = kept
	}
	total := len(nodes)
	if limit > 0 && total > limit {
		nodes = nodes[:limit]
	}

	b := envelope.New().
		Data(map[string]interface{}{"query": args.Query, "symbols": s.outNodes(sc, nodes), "count": len(nodes)}).
		Backend(string(backend))
	if len(nodes) < total {
		b.WithTruncation(true, len(nodes), total, "max-results")
	}
	return b.Build(), nil
}

// languageFilter parses an optional language argument. Unlike routing it
// has no default: an empty value filters nothing.
func languageFilter(name string) (language.Tag, error) {
	if name == "" {
		return "", nil
	}
	tag, ok := language.Parse(name)
	if !ok {
		return "", auraerrors.NewInvalidArgumentError("language", "unsupported language: "+name)
	}
	return tag, nil
}
