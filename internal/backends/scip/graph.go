package scip

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"

	"aura/internal/backends"
)

// Graph is a backends.CodeGraph over a SCIP index file. The index is loaded
// on first use and reloaded when the file's modification time changes.
type Graph struct {
	path        string
	projectRoot string
	logger      *slog.Logger

	mu      sync.Mutex
	idx     *Index
	modTime time.Time
}

// NewGraph creates a graph over the index at path.
func NewGraph(path, projectRoot string, logger *slog.Logger) *Graph {
	return &Graph{path: path, projectRoot: projectRoot, logger: logger}
}

// NewGraphFromIndex wraps an already loaded index.
func NewGraphFromIndex(idx *Index, logger *slog.Logger) *Graph {
	return &Graph{idx: idx, logger: logger}
}

func (g *Graph) ID() backends.BackendID { return backends.BackendSCIP }

// IsAvailable reports whether the index can be loaded.
func (g *Graph) IsAvailable() bool {
	return g.index() != nil
}

func (g *Graph) index() *Index {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.path == "" {
		return g.idx
	}
	st, err := os.Stat(g.path)
	if err != nil {
		g.idx = nil
		return nil
	}
	if g.idx != nil && st.ModTime().Equal(g.modTime) {
		return g.idx
	}
	idx, err := LoadIndex(g.path, g.projectRoot)
	if err != nil {
		g.logger.Warn("Failed to load SCIP index", "path", g.path, "error", err.Error())
		g.idx = nil
		return nil
	}
	g.logger.Info("Loaded SCIP index", "path", g.path, "symbols", idx.SymbolCount())
	g.idx, g.modTime = idx, st.ModTime()
	return idx
}

func (g *Graph) FindNodes(ctx context.Context, q backends.NodeQuery) ([]backends.Node, error) {
	idx := g.index()
	if idx == nil {
		return nil, nil
	}
	needle := strings.ToLower(q.Name)
	var out []backends.Node
	for name, syms := range idx.byName {
		if q.Exact && name != q.Name {
			continue
		}
		if !q.Exact && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		for _, sym := range syms {
			n := idx.node(sym)
			if q.Kind != "" && n.Kind != q.Kind {
				continue
			}
			if q.Path != "" && !strings.HasPrefix(n.Location.Path, q.Path) {
				continue
			}
			out = append(out, n)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	sortNodes(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (g *Graph) FindCallers(ctx context.Context, symbol string) ([]backends.Node, error) {
	idx := g.index()
	if idx == nil {
		return nil, nil
	}
	seen := map[string]bool{}
	var out []backends.Node
	for _, sym := range idx.byName[symbol] {
		for _, occ := range idx.occurrences[sym] {
			if occ.roles&int32(scippb.SymbolRole_Definition) != 0 {
				continue
			}
			caller := idx.enclosing(occ)
			if caller == "" || seen[caller] || caller == sym {
				continue
			}
			n := idx.node(caller)
			if n.Kind != "method" && n.Kind != "function" && n.Kind != "constructor" {
				continue
			}
			seen[caller] = true
			out = append(out, n)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	sortNodes(out)
	return out, nil
}

func (g *Graph) FindImplementations(ctx context.Context, typeName string) ([]backends.Node, error) {
	nodes, err := g.related(ctx, typeName)
	if err != nil {
		return nil, err
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.Kind != "interface" {
			out = append(out, n)
		}
	}
	return out, nil
}

func (g *Graph) FindDerivedTypes(ctx context.Context, typeName string) ([]backends.Node, error) {
	return g.related(ctx, typeName)
}

// related returns the types that declare an implementation relationship
// to a type named typeName.
func (g *Graph) related(ctx context.Context, typeName string) ([]backends.Node, error) {
	idx := g.index()
	if idx == nil {
		return nil, nil
	}
	targets := map[string]bool{}
	for _, sym := range idx.byName[typeName] {
		if idx.ids[sym].Last().Suffix == SuffixType {
			targets[sym] = true
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}
	var out []backends.Node
	for sym, info := range idx.symbols {
		if idx.ids[sym].Last().Suffix != SuffixType {
			continue
		}
		for _, rel := range info.GetRelationships() {
			if rel.GetIsImplementation() && targets[rel.GetSymbol()] {
				out = append(out, idx.node(sym))
				break
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortNodes(out)
	return out, nil
}

func (g *Graph) GetTypeMembers(ctx context.Context, typeName string) ([]backends.Node, error) {
	idx := g.index()
	if idx == nil {
		return nil, nil
	}
	var out []backends.Node
	for sym, id := range idx.ids {
		last := id.Last()
		if last.Suffix == SuffixParameter || last.Suffix == SuffixTypeParameter {
			continue
		}
		if len(id.Descriptors) < 2 {
			continue
		}
		parent := id.Descriptors[len(id.Descriptors)-2]
		if parent.Suffix == SuffixType && parent.Name == typeName {
			out = append(out, idx.node(sym))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortNodes(out)
	return out, nil
}

func (g *Graph) FindReferences(ctx context.Context, symbol string) ([]backends.Reference, error) {
	idx := g.index()
	if idx == nil {
		return nil, nil
	}
	var out []backends.Reference
	for _, sym := range idx.byName[symbol] {
		for _, occ := range idx.occurrences[sym] {
			kind := "reference"
			if occ.roles&int32(scippb.SymbolRole_Definition) != 0 {
				kind = "definition"
			} else if occ.roles&int32(scippb.SymbolRole_WriteAccess) != 0 {
				kind = "write"
			}
			out = append(out, backends.Reference{
				SymbolID: sym,
				Kind:     kind,
				Location: occ.location(),
			})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out, nil
}

// node builds the graph node for a global symbol.
func (idx *Index) node(sym string) backends.Node {
	id := idx.ids[sym]
	info := idx.symbols[sym]
	name := info.GetDisplayName()
	if name == "" && id != nil {
		name = id.Name()
	}
	n := backends.Node{
		ID:   sym,
		Name: name,
		Kind: kindOf(info, id),
	}
	if id != nil {
		n.Container = id.Container()
	}
	if sig := info.GetSignatureDocumentation(); sig != nil {
		n.Signature = strings.TrimSpace(sig.GetText())
	}
	for _, rel := range info.GetRelationships() {
		if rel.GetIsImplementation() {
			if base, err := ParseIdentifier(rel.GetSymbol()); err == nil && base.Last().Suffix == SuffixType {
				n.Bases = append(n.Bases, base.Name())
			}
		}
	}
	for _, occ := range idx.occurrences[sym] {
		if occ.roles&int32(scippb.SymbolRole_Definition) != 0 {
			n.Location = occ.location()
			break
		}
	}
	return n
}

// enclosing finds the innermost definition in the same document whose
// extent contains occ.
func (idx *Index) enclosing(occ occurrence) string {
	best := ""
	bestSize := -1
	for _, def := range idx.definitions[occ.path] {
		if !def.extent.contains(occ.rng.startLine, occ.rng.startChar) {
			continue
		}
		size := (def.extent.endLine-def.extent.startLine)*10000 + (def.extent.endChar - def.extent.startChar)
		if bestSize < 0 || size < bestSize {
			best, bestSize = def.symbol, size
		}
	}
	return best
}

func (o occurrence) location() backends.Location {
	return backends.Location{
		Path:      o.path,
		Line:      o.rng.startLine + 1,
		Column:    o.rng.startChar + 1,
		EndLine:   o.rng.endLine + 1,
		EndColumn: o.rng.endChar + 1,
	}
}

// kindOf prefers the indexer-declared kind and falls back to the
// descriptor suffix.
func kindOf(info *scippb.SymbolInformation, id *Identifier) string {
	switch info.GetKind() {
	case scippb.SymbolInformation_Class:
		return "class"
	case scippb.SymbolInformation_Interface, scippb.SymbolInformation_Protocol, scippb.SymbolInformation_Trait:
		return "interface"
	case scippb.SymbolInformation_Struct:
		return "struct"
	case scippb.SymbolInformation_Enum:
		return "enum"
	case scippb.SymbolInformation_Method:
		return "method"
	case scippb.SymbolInformation_Constructor:
		return "constructor"
	case scippb.SymbolInformation_Function:
		return "function"
	case scippb.SymbolInformation_Property:
		return "property"
	case scippb.SymbolInformation_Field:
		return "field"
	case scippb.SymbolInformation_Namespace, scippb.SymbolInformation_Package, scippb.SymbolInformation_Module:
		return "namespace"
	}
	if id == nil {
		return "symbol"
	}
	switch id.Last().Suffix {
	case SuffixType:
		return "type"
	case SuffixMethod:
		return "method"
	case SuffixTerm:
		return "field"
	case SuffixNamespace:
		return "namespace"
	default:
		return "symbol"
	}
}

func sortNodes(nodes []backends.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Location.Path != nodes[j].Location.Path {
			return nodes[i].Location.Path < nodes[j].Location.Path
		}
		if nodes[i].Location.Line != nodes[j].Location.Line {
			return nodes[i].Location.Line < nodes[j].Location.Line
		}
		return nodes[i].ID < nodes[j].ID
	})
}
