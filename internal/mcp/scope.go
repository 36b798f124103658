package mcp

import (
	"path/filepath"

	"aura/internal/backends"
	"aura/internal/backends/scip"
	"aura/internal/config"
	"aura/internal/worktree"
)

// scope is where one query runs. Read-only queries against a worktree run
// on the main repository, whose index is canonical; result paths are
// mapped back through info.
type scope struct {
	root   string
	target string
	info   worktree.Info
	graph  *backends.BackendChain
}

// out maps a result path back into the caller's path space.
func (s *MCPServer) out(sc scope, p string) string {
	return s.resolver.TranslateResult(p, sc.info)
}

func (s *MCPServer) outLocation(sc scope, loc backends.Location) backends.Location {
	loc.Path = s.out(sc, loc.Path)
	return loc
}

func (s *MCPServer) outNodes(sc scope, nodes []backends.Node) []backends.Node {
	out := make([]backends.Node, len(nodes))
	for i, n := range nodes {
		n.Location = s.outLocation(sc, n.Location)
		out[i] = n
	}
	return out
}

func (s *MCPServer) outRefs(sc scope, refs []backends.Reference) []backends.Reference {
	out := make([]backends.Reference, len(refs))
	for i, r := range refs {
		r.Location = s.outLocation(sc, r.Location)
		out[i] = r
	}
	return out
}

func (s *MCPServer) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}

// readScope translates path (optional, relative to the server root) for a
// structural or semantic query.
func (s *MCPServer) readScope(path string) (scope, error) {
	rootQ, info, err := s.resolver.TranslateQuery(s.root)
	if err != nil {
		return scope{}, err
	}
	sc := scope{root: filepath.Clean(s.root)}
	if info.IsWorktree {
		sc.root, sc.info = rootQ, info
	}
	if path != "" {
		target, pinfo, err := s.resolver.TranslateQuery(s.abs(path))
		if err != nil {
			return scope{}, err
		}
		sc.target = target
		if pinfo.IsWorktree && !sc.info.IsWorktree {
			sc.root, sc.info = pinfo.MainRepoPath, pinfo
		}
	}
	sc.graph = s.graphFor(sc.root, true)
	return sc, nil
}

// writeScope is the scope of a mutating operation: it runs in place on
// the server root. A worktree's files can differ from the main
// repository's index, so only the workspace parser answers there.
func (s *MCPServer) writeScope(path string) (scope, error) {
	info, err := s.resolver.Resolve(s.root)
	if err != nil {
		return scope{}, err
	}
	sc := scope{root: filepath.Clean(s.root), target: s.abs(path)}
	sc.graph = s.graphFor(sc.root, !info.IsWorktree)
	return sc, nil
}

// graphFor returns the fallback chain for root: the SCIP index first when
// allowed, then the tree-sitter workspace.
func (s *MCPServer) graphFor(root string, withIndex bool) *backends.BackendChain {
	if s.opts.Graph != nil {
		return backends.NewBackendChain(s.logger, s.opts.Graph)
	}
	var graphs []backends.CodeGraph
	if withIndex && s.cfg.Index.ScipPath != "" {
		graphs = append(graphs, s.index(root))
	}
	graphs = append(graphs, s.workspaces.Get(root))
	return backends.NewBackendChain(s.logger, graphs...)
}

func (s *MCPServer) index(root string) *scip.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.indexes[root]
	if !ok {
		g = scip.NewGraph(config.ResolvePath(root, s.cfg.Index.ScipPath), root, s.logger)
		s.indexes[root] = g
	}
	return g
}
