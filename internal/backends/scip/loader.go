// Package scip serves code-graph queries from a SCIP index.
package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	auraerrors "aura/internal/errors"
)

// occurrence is one symbol occurrence with its document path.
type occurrence struct {
	path      string
	rng       span
	enclosing span
	roles     int32
}

// span is a 0-based SCIP range normalised to four fields.
type span struct {
	startLine, startChar, endLine, endChar int
}

func (s span) empty() bool { return s == span{} }

func (s span) contains(line, char int) bool {
	if line < s.startLine || line > s.endLine {
		return false
	}
	if line == s.startLine && char < s.startChar {
		return false
	}
	if line == s.endLine && char > s.endChar {
		return false
	}
	return true
}

// definition is a symbol defined in a document, used to find the
// enclosing symbol of a reference.
type definition struct {
	symbol string
	rng    span
	extent span
}

// Index is a loaded SCIP index with lookup tables.
type Index struct {
	ProjectRoot string
	Tool        string
	LoadedAt    time.Time

	symbols     map[string]*scippb.SymbolInformation
	ids         map[string]*Identifier
	byName      map[string][]string
	occurrences map[string][]occurrence
	definitions map[string][]definition // by document path
}

// LoadIndex reads and decodes a SCIP index. Relative document paths are
// resolved against projectRoot; when empty, the index metadata root is used.
func LoadIndex(path, projectRoot string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, auraerrors.NewBackendUnavailableError("SCIP index at "+path, "generate an index with the scip indexer for your language")
		}
		return nil, auraerrors.NewOperationError("reading SCIP index", err)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, auraerrors.NewAuraError(auraerrors.BackendUnavailable,
			fmt.Sprintf("failed to parse SCIP index %s", path), err,
			[]auraerrors.FixAction{{
				Type:        auraerrors.RunCommand,
				Command:     "scip print --index=" + path,
				Safe:        true,
				Description: "Verify the SCIP index is valid",
			}})
	}
	return newIndex(&raw, projectRoot), nil
}

func newIndex(raw *scippb.Index, projectRoot string) *Index {
	idx := &Index{
		ProjectRoot: projectRoot,
		LoadedAt:    time.Now(),
		symbols:     make(map[string]*scippb.SymbolInformation),
		ids:         make(map[string]*Identifier),
		byName:      make(map[string][]string),
		occurrences: make(map[string][]occurrence),
		definitions: make(map[string][]definition),
	}
	if md := raw.GetMetadata(); md != nil {
		if idx.ProjectRoot == "" {
			idx.ProjectRoot = fileURIPath(md.GetProjectRoot())
		}
		if ti := md.GetToolInfo(); ti != nil {
			idx.Tool = ti.GetName()
		}
	}

	addSymbol := func(info *scippb.SymbolInformation) {
		sym := info.GetSymbol()
		if sym == "" || IsLocal(sym) {
			return
		}
		if _, seen := idx.symbols[sym]; seen {
			return
		}
		id, err := ParseIdentifier(sym)
		if err != nil {
			return
		}
		idx.symbols[sym] = info
		idx.ids[sym] = id
		name := info.GetDisplayName()
		if name == "" {
			name = id.Name()
		}
		idx.byName[name] = append(idx.byName[name], sym)
	}

	for _, doc := range raw.GetDocuments() {
		for _, info := range doc.GetSymbols() {
			addSymbol(info)
		}
		docPath := idx.absPath(doc.GetRelativePath())
		for _, occ := range doc.GetOccurrences() {
			sym := occ.GetSymbol()
			if sym == "" || IsLocal(sym) {
				continue
			}
			o := occurrence{
				path:      docPath,
				rng:       toSpan(occ.GetRange()),
				enclosing: toSpan(occ.GetEnclosingRange()),
				roles:     occ.GetSymbolRoles(),
			}
			idx.occurrences[sym] = append(idx.occurrences[sym], o)
			if o.roles&int32(scippb.SymbolRole_Definition) != 0 {
				extent := o.enclosing
				if extent.empty() {
					extent = o.rng
				}
				idx.definitions[docPath] = append(idx.definitions[docPath], definition{symbol: sym, rng: o.rng, extent: extent})
			}
		}
	}
	for _, info := range raw.GetExternalSymbols() {
		addSymbol(info)
	}
	for path := range idx.definitions {
		defs := idx.definitions[path]
		sort.Slice(defs, func(i, j int) bool {
			if defs[i].rng.startLine != defs[j].rng.startLine {
				return defs[i].rng.startLine < defs[j].rng.startLine
			}
			return defs[i].rng.startChar < defs[j].rng.startChar
		})
	}
	return idx
}

func (idx *Index) absPath(rel string) string {
	if filepath.IsAbs(rel) || idx.ProjectRoot == "" {
		return filepath.FromSlash(rel)
	}
	return filepath.Join(idx.ProjectRoot, filepath.FromSlash(rel))
}

// SymbolCount returns the number of global symbols in the index.
func (idx *Index) SymbolCount() int { return len(idx.symbols) }

// toSpan converts [startLine, startChar, endChar] or
// [startLine, startChar, endLine, endChar] into a span.
func toSpan(r []int32) span {
	switch len(r) {
	case 3:
		return span{int(r[0]), int(r[1]), int(r[0]), int(r[2])}
	case 4:
		return span{int(r[0]), int(r[1]), int(r[2]), int(r[3])}
	default:
		return span{}
	}
}

func fileURIPath(uri string) string {
	const prefix = "file://"
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		return filepath.FromSlash(uri[len(prefix):])
	}
	return filepath.FromSlash(uri)
}
