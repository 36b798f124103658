package structural

import (
	"context"

	"aura/internal/backends"
)

// SafeDeleteResult reports whether a declaration can be removed and, when
// executed, whether it was.
type SafeDeleteResult struct {
	Symbol    string               `json:"symbol"`
	Kind      string               `json:"kind"`
	File      string               `json:"file"`
	StartLine int                  `json:"startLine"`
	EndLine   int                  `json:"endLine"`
	Safe      bool                 `json:"safe"`
	Usages    []backends.Reference `json:"usages"`
	Deleted   bool                 `json:"deleted"`
}

// SafeDelete removes the declaration of t when nothing outside the
// declaration refers to it. Without execute it only reports.
func SafeDelete(ctx context.Context, g backends.CodeGraph, t Target, execute bool) (*SafeDeleteResult, error) {
	n, err := find(ctx, g, t, false)
	if err != nil {
		return nil, err
	}
	refs, err := g.FindReferences(ctx, n.Name)
	if err != nil {
		return nil, err
	}

	lines, mode, err := readLines(n.Location.Path)
	if err != nil {
		return nil, err
	}
	decl := withLeading(lines, nodeSpan(n))

	res := &SafeDeleteResult{
		Symbol:    n.Name,
		Kind:      n.Kind,
		File:      n.Location.Path,
		StartLine: decl.start,
		EndLine:   decl.end,
		Usages:    []backends.Reference{},
	}
	for _, r := range refs {
		if r.Kind == "definition" {
			continue
		}
		if r.Location.Path == n.Location.Path && decl.contains(r.Location.Line) {
			continue
		}
		res.Usages = append(res.Usages, r)
	}
	res.Safe = len(res.Usages) == 0
	if !res.Safe || !execute {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := writeAtomic(n.Location.Path, cut(lines, decl), mode); err != nil {
		return res, err
	}
	res.Deleted = true
	return res, nil
}
