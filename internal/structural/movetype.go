package structural

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"aura/internal/backends"
)

// MoveResult describes moving a type into a file named after it.
type MoveResult struct {
	Type       string `json:"type"`
	From       string `json:"from"`
	To         string `json:"to"`
	AlreadyOK  bool   `json:"alreadyMatches"`
	RenameOnly bool   `json:"renameOnly"`
	Content    string `json:"content,omitempty"`
	Moved      bool   `json:"moved"`
}

// MoveTypeToFile moves the type t into <dir>/<Type><ext>. A type that is
// the only declaration in its file is moved by renaming the file.
func MoveTypeToFile(ctx context.Context, g backends.CodeGraph, t Target, execute bool) (*MoveResult, error) {
	n, err := find(ctx, g, t, true)
	if err != nil {
		return nil, err
	}
	src := n.Location.Path
	ext := filepath.Ext(src)
	dst := filepath.Join(filepath.Dir(src), n.Name+ext)

	res := &MoveResult{Type: n.Name, From: src, To: dst}
	if strings.TrimSuffix(filepath.Base(src), ext) == n.Name {
		res.AlreadyOK = true
		res.To = src
		return res, nil
	}
	if _, err := os.Stat(dst); err == nil {
		return nil, existsError(dst)
	}

	siblings, err := g.FindNodes(ctx, backends.NodeQuery{Path: src})
	if err != nil {
		return nil, err
	}
	others := 0
	for _, s := range siblings {
		if s.Location.Path == src && typeKinds[s.Kind] && s.Container == "" && s.Name != n.Name {
			others++
		}
	}

	lines, mode, err := readLines(src)
	if err != nil {
		return nil, err
	}

	if others == 0 {
		res.RenameOnly = true
		if execute {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := os.Rename(src, dst); err != nil {
				return res, err
			}
			res.Moved = true
		}
		return res, nil
	}

	body := withLeading(lines, nodeSpan(n))
	imports, namespace := header(lines, body.start)

	var b strings.Builder
	for _, imp := range imports {
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	if len(imports) > 0 {
		b.WriteByte('\n')
	}
	if namespace != "" && ext == ".cs" {
		b.WriteString("namespace " + namespace + ";\n\n")
	}
	b.WriteString(strings.Join(dedent(lines[body.start-1:body.end]), "\n"))
	b.WriteByte('\n')
	res.Content = b.String()

	if !execute {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := createFile(dst, res.Content); err != nil {
		return res, err
	}
	if err := writeAtomic(src, cut(lines, body), mode); err != nil {
		_ = os.Remove(dst)
		return res, err
	}
	res.Moved = true
	return res, nil
}
