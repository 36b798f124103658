// Package rename computes the blast radius of a rename and executes the
// resulting plan.
package rename

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"aura/internal/backends"
	auraerrors "aura/internal/errors"
	"aura/internal/slogutil"
)

// Plan step types.
const (
	StepRenameSymbol = "rename_symbol"
	StepRenameFile   = "rename_file"
)

// Request names the symbol to rename and optional scope hints.
type Request struct {
	Symbol  string `json:"symbol"`
	NewName string `json:"newName"`
	// Kind narrows the target when several symbols share a name.
	Kind    string `json:"kind,omitempty"`
	// Path restricts the target to declarations under this path.
	Path    string `json:"path,omitempty"`
}

// RelatedSymbol is a symbol whose name derives from the target by
// naming convention.
type RelatedSymbol struct {
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	File             string `json:"file"`
	Relation         string `json:"relation"`
	ReferenceCount   int    `json:"referenceCount"`
	SuggestedNewName string `json:"suggestedNewName"`
}

// PlanStep is one atomic operation of a rename plan.
type PlanStep struct {
	Order   int    `json:"order"`
	Type    string `json:"type"`
	Symbol  string `json:"symbol,omitempty"`
	NewName string `json:"newName,omitempty"`
	File    string `json:"file,omitempty"`
	NewFile string `json:"newFile,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// BlastRadius is everything a rename would touch. Fingerprints maps each
// affected file to a digest of its content at analysis time.
type BlastRadius struct {
	TargetSymbol    string            `json:"targetSymbol"`
	TargetKind      string            `json:"targetKind"`
	NewName         string            `json:"newName"`
	RelatedSymbols  []RelatedSymbol   `json:"relatedSymbols"`
	TotalReferences int               `json:"totalReferences"`
	FilesAffected   int               `json:"filesAffected"`
	Files           []string          `json:"files"`
	SuggestedPlan   []PlanStep        `json:"suggestedPlan"`
	Fingerprints    map[string]string `json:"fingerprints"`

	edits map[string][]edit
}

// edit replaces one occurrence of from at a 1-based line and column.
type edit struct {
	line   int
	column int
	from   string
	to     string
}

// Analyzer computes blast radii against a code graph.
type Analyzer struct {
	graph    backends.CodeGraph
	strategy Strategy
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil strategy uses NamingConventions.
func NewAnalyzer(graph backends.CodeGraph, strategy Strategy, logger *slog.Logger) *Analyzer {
	if strategy == nil {
		strategy = NamingConventions{}
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Analyzer{graph: graph, strategy: strategy, logger: logger}
}

// Analyze computes the blast radius of req. It never writes to disk.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*BlastRadius, error) {
	if req.Symbol == "" {
		return nil, auraerrors.NewInvalidArgumentError("symbolName", "required")
	}
	if req.NewName == "" {
		return nil, auraerrors.NewInvalidArgumentError("newName", "required")
	}
	if req.Symbol == req.NewName {
		return nil, auraerrors.NewInvalidArgumentError("newName", "must differ from the current name")
	}

	target, err := a.target(ctx, req)
	if err != nil {
		return nil, err
	}

	refs, err := a.graph.FindReferences(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if refs, err = a.scope(ctx, target, refs); err != nil {
		return nil, err
	}

	br := &BlastRadius{
		TargetSymbol:   req.Symbol,
		TargetKind:     target.Kind,
		NewName:        req.NewName,
		RelatedSymbols: []RelatedSymbol{},
		Fingerprints:   make(map[string]string),
		edits:          make(map[string][]edit),
	}
	br.TotalReferences = len(refs)
	br.addEdits(refs, req.Symbol, req.NewName)
	br.addFile(target.Location.Path)

	related, err := a.related(ctx, req, target)
	if err != nil {
		return nil, err
	}
	for _, r := range related {
		br.RelatedSymbols = append(br.RelatedSymbols, r.symbol)
		br.addEdits(r.refs, r.symbol.Name, r.symbol.SuggestedNewName)
		br.addFile(r.symbol.File)
	}

	br.SuggestedPlan = plan(req, target, br.RelatedSymbols)
	for _, f := range br.Files {
		if fp, err := FingerprintFile(f); err == nil {
			br.Fingerprints[f] = fp
		}
	}
	br.FilesAffected = len(br.Files)

	a.logger.Debug("rename analyzed",
		"symbol", req.Symbol,
		"references", br.TotalReferences,
		"related", len(br.RelatedSymbols),
		"files", br.FilesAffected,
	)
	return br, nil
}

func (a *Analyzer) target(ctx context.Context, req Request) (backends.Node, error) {
	nodes, err := a.graph.FindNodes(ctx, backends.NodeQuery{Name: req.Symbol, Kind: req.Kind, Path: req.Path, Exact: true})
	if err != nil {
		return backends.Node{}, err
	}
	if len(nodes) == 0 {
		return backends.Node{}, auraerrors.NewNotFoundError("Symbol", req.Symbol)
	}
	// Prefer a type declaration, then the first by location.
	sort.SliceStable(nodes, func(i, j int) bool {
		ti, tj := isTypeKind(nodes[i].Kind) || nodes[i].Kind == "interface", isTypeKind(nodes[j].Kind) || nodes[j].Kind == "interface"
		if ti != tj {
			return ti
		}
		if nodes[i].Location.Path != nodes[j].Location.Path {
			return nodes[i].Location.Path < nodes[j].Location.Path
		}
		return nodes[i].Location.Line < nodes[j].Location.Line
	})
	return nodes[0], nil
}

type relatedLookup struct {
	symbol RelatedSymbol
	refs   []backends.Reference
}

func (a *Analyzer) related(ctx context.Context, req Request, target backends.Node) ([]relatedLookup, error) {
	candidates := a.strategy.Candidates(req.Symbol, req.NewName, target.Kind)
	results := make([]*relatedLookup, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range candidates {
		g.Go(func() error {
			nodes, err := a.graph.FindNodes(gctx, backends.NodeQuery{Name: c.Name, Path: req.Path, Exact: true})
			if err != nil || len(nodes) == 0 {
				return err
			}
			node := nodes[0]
			for _, n := range nodes {
				if n.Container == target.Container {
					node = n
					break
				}
			}
			refs, err := a.graph.FindReferences(gctx, c.Name)
			if err != nil {
				return err
			}
			if refs, err = a.scope(gctx, node, refs); err != nil {
				return err
			}
			if local(c.Relation) {
				refs = inFile(refs, node.Location.Path)
			}
			results[i] = &relatedLookup{
				symbol: RelatedSymbol{
					Name:             c.Name,
					Kind:             node.Kind,
					File:             node.Location.Path,
					Relation:         c.Relation,
					ReferenceCount:   len(refs),
					SuggestedNewName: c.NewName,
				},
				refs: refs,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []relatedLookup
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].symbol.Name < out[j].symbol.Name })
	return out, nil
}

// local reports whether symbols of the relation are visible only in
// their declaring file.
func local(relation string) bool {
	return relation == RelationBackingField || relation == RelationParameter
}

func inFile(refs []backends.Reference, path string) []backends.Reference {
	if path == "" {
		return refs
	}
	var out []backends.Reference
	for _, r := range refs {
		if r.Location.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// plan orders the primary rename first, then convention-derived renames,
// then the file rename when a type's file is named after it.
func plan(req Request, target backends.Node, related []RelatedSymbol) []PlanStep {
	steps := []PlanStep{{
		Type:    StepRenameSymbol,
		Symbol:  req.Symbol,
		NewName: req.NewName,
		File:    target.Location.Path,
		Reason:  "primary",
	}}
	for _, r := range related {
		steps = append(steps, PlanStep{
			Type:    StepRenameSymbol,
			Symbol:  r.Name,
			NewName: r.SuggestedNewName,
			File:    r.File,
			Reason:  r.Relation,
		})
	}
	if newFile, ok := fileRename(target, req.NewName); ok {
		steps = append(steps, PlanStep{
			Type:    StepRenameFile,
			File:    target.Location.Path,
			NewFile: newFile,
			Reason:  "file named after renamed type",
		})
	}
	for i := range steps {
		steps[i].Order = i + 1
	}
	return steps
}

func fileRename(target backends.Node, newName string) (string, bool) {
	if !isTypeKind(target.Kind) && target.Kind != "interface" && target.Kind != "enum" {
		return "", false
	}
	p := target.Location.Path
	if p == "" {
		return "", false
	}
	ext := filepath.Ext(p)
	if strings.TrimSuffix(filepath.Base(p), ext) != target.Name {
		return "", false
	}
	return filepath.Join(filepath.Dir(p), newName+ext), true
}

func (br *BlastRadius) addFile(p string) {
	if p == "" {
		return
	}
	i := sort.SearchStrings(br.Files, p)
	if i < len(br.Files) && br.Files[i] == p {
		return
	}
	br.Files = append(br.Files, "")
	copy(br.Files[i+1:], br.Files[i:])
	br.Files[i] = p
}

func (br *BlastRadius) addEdits(refs []backends.Reference, from, to string) {
	for _, r := range refs {
		if r.Location.Path == "" || r.Location.Line < 1 {
			continue
		}
		br.addFile(r.Location.Path)
		br.edits[r.Location.Path] = append(br.edits[r.Location.Path], edit{
			line:   r.Location.Line,
			column: r.Location.Column,
			from:   from,
			to:     to,
		})
	}
}
