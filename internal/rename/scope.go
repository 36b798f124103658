package rename

import (
	"context"

	"aura/internal/backends"
)

// region is an inclusive line range of one file.
type region struct {
	path  string
	start int
	end   int
}

func (r region) contains(loc backends.Location) bool {
	return r.path != "" && loc.Path == r.path && loc.Line >= r.start && loc.Line <= r.end
}

func nodeRegion(n backends.Node) region {
	end := n.Location.EndLine
	if end < n.Location.Line {
		end = n.Location.Line
	}
	return region{path: n.Location.Path, start: n.Location.Line, end: end}
}

func sameNode(a, b backends.Node) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.Name == b.Name && a.Container == b.Container && a.Location.Path == b.Location.Path && a.Location.Line == b.Location.Line
}

// scope keeps the references of refs that belong to target. References
// are looked up by bare name, so they can include same-named symbols
// declared by other types.
func (a *Analyzer) scope(ctx context.Context, target backends.Node, refs []backends.Reference) ([]backends.Reference, error) {
	if target.ID != "" {
		var exact []backends.Reference
		for _, r := range refs {
			if r.SymbolID == target.ID {
				exact = append(exact, r)
			}
		}
		if len(exact) > 0 {
			return exact, nil
		}
	}

	nodes, err := a.graph.FindNodes(ctx, backends.NodeQuery{Name: target.Name, Exact: true})
	if err != nil {
		return nil, err
	}
	var rivals []backends.Node
	for _, n := range nodes {
		if !sameNode(n, target) && n.Container != target.Container {
			rivals = append(rivals, n)
		}
	}
	if len(rivals) == 0 {
		return refs, nil
	}

	own, err := a.containerRegion(ctx, target)
	if err != nil {
		return nil, err
	}
	var foreign []region
	for _, n := range rivals {
		r, err := a.containerRegion(ctx, n)
		if err != nil {
			return nil, err
		}
		foreign = append(foreign, r)
	}

	// Files outside the declarations count only when they mention the
	// target's type and none of the rival types.
	var ownFiles, rivalFiles map[string]bool
	member := target.Container != "" && !isTypeKind(target.Kind) && target.Kind != "interface" && target.Kind != "enum"
	if member {
		if ownFiles, err = a.mentions(ctx, target.Container); err != nil {
			return nil, err
		}
		rivalFiles = make(map[string]bool)
		for _, n := range rivals {
			if n.Container == "" {
				continue
			}
			files, err := a.mentions(ctx, n.Container)
			if err != nil {
				return nil, err
			}
			for f := range files {
				rivalFiles[f] = true
			}
		}
	}

	var out []backends.Reference
	for _, r := range refs {
		if own.contains(r.Location) {
			out = append(out, r)
			continue
		}
		if inAny(foreign, r.Location) {
			continue
		}
		p := r.Location.Path
		if member && p != target.Location.Path && !ownFiles[p] && rivalFiles[p] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// containerRegion returns the lines of the type declaring n, or the
// lines of n itself when the declaring type is unknown.
func (a *Analyzer) containerRegion(ctx context.Context, n backends.Node) (region, error) {
	self := nodeRegion(n)
	if n.Container == "" {
		return self, nil
	}
	types, err := a.graph.FindNodes(ctx, backends.NodeQuery{Name: n.Container, Exact: true})
	if err != nil {
		return region{}, err
	}
	for _, t := range types {
		if r := nodeRegion(t); r.contains(n.Location) {
			return r, nil
		}
	}
	return self, nil
}

func (a *Analyzer) mentions(ctx context.Context, name string) (map[string]bool, error) {
	refs, err := a.graph.FindReferences(ctx, name)
	if err != nil {
		return nil, err
	}
	files := make(map[string]bool, len(refs))
	for _, r := range refs {
		files[r.Location.Path] = true
	}
	return files, nil
}

func inAny(regions []region, loc backends.Location) bool {
	for _, r := range regions {
		if r.contains(loc) {
			return true
		}
	}
	return false
}
