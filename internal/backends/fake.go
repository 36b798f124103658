package backends

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// StaticGraph is an in-memory CodeGraph over a fixed node and reference set.
// It backs tests and small embedded fixtures.
type StaticGraph struct {
	Name       BackendID
	Available  bool
	Nodes      []Node
	References map[string][]Reference
	Err        error

	mu    sync.Mutex
	calls int
}

// NewStaticGraph creates an available graph over nodes.
func NewStaticGraph(id BackendID, nodes ...Node) *StaticGraph {
	return &StaticGraph{Name: id, Available: true, Nodes: nodes, References: map[string][]Reference{}}
}

// Calls returns how many queries reached the graph.
func (s *StaticGraph) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticGraph) hit() error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.Err
}

func (s *StaticGraph) ID() BackendID     { return s.Name }
func (s *StaticGraph) IsAvailable() bool { return s.Available }

func (s *StaticGraph) FindNodes(_ context.Context, q NodeQuery) ([]Node, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	var out []Node
	for _, n := range s.Nodes {
		if q.Kind != "" && n.Kind != q.Kind {
			continue
		}
		if q.Exact && n.Name != q.Name {
			continue
		}
		if !q.Exact && !strings.Contains(strings.ToLower(n.Name), strings.ToLower(q.Name)) {
			continue
		}
		if q.Path != "" && n.Location.Path != q.Path && !strings.HasPrefix(n.Location.Path, q.Path+string(filepath.Separator)) {
			continue
		}
		out = append(out, n)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *StaticGraph) FindCallers(_ context.Context, symbol string) ([]Node, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	var out []Node
	for _, r := range s.References[symbol] {
		if r.Kind != "call" {
			continue
		}
		for _, n := range s.Nodes {
			if n.ID == r.SymbolID {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func (s *StaticGraph) FindImplementations(_ context.Context, typeName string) ([]Node, error) {
	return s.withBase(typeName, true)
}

func (s *StaticGraph) FindDerivedTypes(_ context.Context, typeName string) ([]Node, error) {
	return s.withBase(typeName, false)
}

func (s *StaticGraph) withBase(typeName string, implementations bool) ([]Node, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	var out []Node
	for _, n := range s.Nodes {
		if n.Kind == "interface" && implementations {
			continue
		}
		for _, b := range n.Bases {
			if b == typeName {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func (s *StaticGraph) GetTypeMembers(_ context.Context, typeName string) ([]Node, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	var out []Node
	for _, n := range s.Nodes {
		if n.Container == typeName {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *StaticGraph) FindReferences(_ context.Context, symbol string) ([]Reference, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.References[symbol], nil
}
