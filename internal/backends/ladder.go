package backends

import (
	"context"
	"log/slog"

	auraerrors "aura/internal/errors"
)

// BackendChain is the code-graph fallback ladder: graphs are asked in order
// and the first non-empty answer wins. A graph that is unavailable, fails or
// finds nothing hands the query to the next one.
type BackendChain struct {
	graphs []CodeGraph
	logger *slog.Logger
}

// NewBackendChain creates a chain. Nil graphs are dropped.
func NewBackendChain(logger *slog.Logger, graphs ...CodeGraph) *BackendChain {
	c := &BackendChain{logger: logger}
	for _, g := range graphs {
		if g != nil {
			c.graphs = append(c.graphs, g)
		}
	}
	return c
}

// ID implements CodeGraph.
func (c *BackendChain) ID() BackendID { return "chain" }

// IsAvailable reports whether any graph in the chain is available.
func (c *BackendChain) IsAvailable() bool {
	for _, g := range c.graphs {
		if g.IsAvailable() {
			return true
		}
	}
	return false
}

// Resolve runs fn against each graph in order and returns the first
// non-empty result together with the backend that produced it. On
// cancellation partial results are discarded and ctx.Err() is returned.
func Resolve[T any](ctx context.Context, c *BackendChain, op string, fn func(CodeGraph) ([]T, error)) ([]T, BackendID, error) {
	var (
		lastErr  error
		answered BackendID
	)
	for _, g := range c.graphs {
		if !g.IsAvailable() {
			c.logger.Debug("Backend not available", "backend", g.ID(), "op", op)
			continue
		}
		items, err := fn(g)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		if err != nil {
			c.logger.Warn("Backend query failed, falling back", "backend", g.ID(), "op", op, "error", err.Error())
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return items, g.ID(), nil
		}
		if answered == "" {
			answered = g.ID()
		}
		c.logger.Debug("Backend returned no results", "backend", g.ID(), "op", op)
	}

	if answered != "" {
		return nil, answered, nil
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", auraerrors.NewBackendUnavailableError("code graph", "build a SCIP index or enable the tree-sitter fallback")
}

func (c *BackendChain) FindNodes(ctx context.Context, q NodeQuery) ([]Node, error) {
	items, _, err := Resolve(ctx, c, "findNodes", func(g CodeGraph) ([]Node, error) { return g.FindNodes(ctx, q) })
	return items, err
}

func (c *BackendChain) FindCallers(ctx context.Context, symbol string) ([]Node, error) {
	items, _, err := Resolve(ctx, c, "findCallers", func(g CodeGraph) ([]Node, error) { return g.FindCallers(ctx, symbol) })
	return items, err
}

func (c *BackendChain) FindImplementations(ctx context.Context, typeName string) ([]Node, error) {
	items, _, err := Resolve(ctx, c, "findImplementations", func(g CodeGraph) ([]Node, error) { return g.FindImplementations(ctx, typeName) })
	return items, err
}

func (c *BackendChain) FindDerivedTypes(ctx context.Context, typeName string) ([]Node, error) {
	items, _, err := Resolve(ctx, c, "findDerivedTypes", func(g CodeGraph) ([]Node, error) { return g.FindDerivedTypes(ctx, typeName) })
	return items, err
}

func (c *BackendChain) GetTypeMembers(ctx context.Context, typeName string) ([]Node, error) {
	items, _, err := Resolve(ctx, c, "getTypeMembers", func(g CodeGraph) ([]Node, error) { return g.GetTypeMembers(ctx, typeName) })
	return items, err
}

func (c *BackendChain) FindReferences(ctx context.Context, symbol string) ([]Reference, error) {
	items, _, err := Resolve(ctx, c, "findReferences", func(g CodeGraph) ([]Reference, error) { return g.FindReferences(ctx, symbol) })
	return items, err
}
