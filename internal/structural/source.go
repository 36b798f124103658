// Package structural implements refactorings that need only the code graph
// and the source text: safe delete, moving a type to its own file and
// extracting an interface.
package structural

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"aura/internal/backends"
	auraerrors "aura/internal/errors"
)

// Target selects one declaration.
type Target struct {
	Symbol string
	Kind   string
	// Path restricts the lookup to declarations under this path.
	Path string
}

var typeKinds = map[string]bool{
	"class": true, "interface": true, "struct": true, "record": true, "enum": true, "type": true,
}

// find resolves t to exactly one declaration.
func find(ctx context.Context, g backends.CodeGraph, t Target, typesOnly bool) (backends.Node, error) {
	if t.Symbol == "" {
		return backends.Node{}, auraerrors.NewInvalidArgumentError("symbolName", "required")
	}
	nodes, err := g.FindNodes(ctx, backends.NodeQuery{Name: t.Symbol, Kind: t.Kind, Path: t.Path, Exact: true})
	if err != nil {
		return backends.Node{}, err
	}
	var matches []backends.Node
	for _, n := range nodes {
		if typesOnly && !typeKinds[n.Kind] {
			continue
		}
		matches = append(matches, n)
	}
	resource := "Symbol"
	if typesOnly {
		resource = "Type"
	}
	switch len(matches) {
	case 0:
		return backends.Node{}, auraerrors.NewNotFoundError(resource, t.Symbol)
	case 1:
		return matches[0], nil
	default:
		locs := make([]string, 0, len(matches))
		for _, m := range matches {
			locs = append(locs, fmt.Sprintf("%s:%d", m.Location.Path, m.Location.Line))
		}
		return backends.Node{}, auraerrors.NewInvalidArgumentError("symbolName",
			fmt.Sprintf("%d declarations match; narrow with kind or path", len(matches))).
			WithDetails(map[string]interface{}{"candidates": locs})
	}
}

// span is a 1-based inclusive line range.
type span struct {
	start, end int
}

func nodeSpan(n backends.Node) span {
	end := n.Location.EndLine
	if end < n.Location.Line {
		end = n.Location.Line
	}
	return span{start: n.Location.Line, end: end}
}

func (s span) contains(line int) bool { return line >= s.start && line <= s.end }

// withLeading extends s upward over doc comments and attributes.
func withLeading(lines []string, s span) span {
	for s.start > 1 {
		prev := strings.TrimSpace(lines[s.start-2])
		if strings.HasPrefix(prev, "///") || strings.HasPrefix(prev, "//") ||
			strings.HasPrefix(prev, "[") || strings.HasPrefix(prev, "#[") ||
			strings.HasPrefix(prev, "@") {
			s.start--
			continue
		}
		break
	}
	return s
}

func readLines(p string) ([]string, os.FileMode, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, 0, err
	}
	return strings.Split(string(data), "\n"), info.Mode().Perm(), nil
}

// cut removes s from lines, collapsing a blank line left behind.
func cut(lines []string, s span) []string {
	out := make([]string, 0, len(lines))
	out = append(out, lines[:s.start-1]...)
	rest := lines[s.end:]
	if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" && len(rest) > 0 {
		switch strings.TrimSpace(rest[0]) {
		case "":
			rest = rest[1:]
		case "}":
			out = out[:len(out)-1]
		}
	}
	return append(out, rest...)
}

func writeAtomic(p string, lines []string, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func createFile(p, content string) error {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return existsError(p)
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func existsError(p string) error {
	return auraerrors.NewPreconditionError(p+" already exists", "remove it or pick another name")
}

var (
	importLine    = regexp.MustCompile(`^\s*(using|import|from)\s`)
	namespaceLine = regexp.MustCompile(`^\s*namespace\s+([\w.]+)\s*(;|\{)?\s*$`)
)

// header collects the import directives and the enclosing namespace that
// precede line.
func header(lines []string, line int) (imports []string, namespace string) {
	for i := 0; i < line-1 && i < len(lines); i++ {
		l := lines[i]
		if importLine.MatchString(l) {
			imports = append(imports, strings.TrimSpace(l))
			continue
		}
		if m := namespaceLine.FindStringSubmatch(l); m != nil {
			namespace = m[1]
		}
	}
	return imports, namespace
}

// dedent removes the common leading whitespace of lines.
func dedent(lines []string) []string {
	prefix := ""
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		ws := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first || !strings.HasPrefix(ws, prefix) {
			if first {
				prefix = ws
			} else {
				prefix = commonPrefix(prefix, ws)
			}
			first = false
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimPrefix(l, prefix)
	}
	return out
}

func commonPrefix(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}
