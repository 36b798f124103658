package structural

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aura/internal/backends"
	auraerrors "aura/internal/errors"
)

// ExtractResult describes an extracted interface.
type ExtractResult struct {
	Type          string   `json:"type"`
	InterfaceName string   `json:"interfaceName"`
	File          string   `json:"file"`
	Members       []string `json:"members"`
	Content       string   `json:"content"`
	Implemented   bool     `json:"implemented"`
	Written       bool     `json:"written"`
	Warning       string   `json:"warning,omitempty"`
}

var dropModifiers = map[string]bool{
	"public": true, "override": true, "virtual": true, "sealed": true,
	"async": true, "abstract": true, "new": true, "extern": true,
}

// ExtractInterface builds an interface from the public instance members of
// the C# type t. With execute the interface file is written next to the
// type and the type declaration gains the interface in its base list.
func ExtractInterface(ctx context.Context, g backends.CodeGraph, t Target, name string, execute bool) (*ExtractResult, error) {
	n, err := find(ctx, g, t, true)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case "class", "struct", "record":
	default:
		return nil, auraerrors.NewInvalidArgumentError("symbolName", fmt.Sprintf("%s is a %s; expected a class, struct or record", n.Name, n.Kind))
	}
	if filepath.Ext(n.Location.Path) != ".cs" {
		return nil, auraerrors.NewInvalidArgumentError("language", "extract_interface supports C# sources")
	}
	if name == "" {
		name = "I" + n.Name
	}

	nodes, err := g.GetTypeMembers(ctx, n.Name)
	if err != nil {
		return nil, err
	}
	res := &ExtractResult{
		Type:          n.Name,
		InterfaceName: name,
		File:          filepath.Join(filepath.Dir(n.Location.Path), name+".cs"),
		Members:       []string{},
	}
	for _, m := range nodes {
		if decl, ok := memberDecl(m); ok {
			res.Members = append(res.Members, decl)
		}
	}
	if len(res.Members) == 0 {
		return nil, auraerrors.NewPreconditionError(n.Name+" has no public instance members", "")
	}
	if _, err := os.Stat(res.File); err == nil {
		return nil, existsError(res.File)
	}

	lines, mode, err := readLines(n.Location.Path)
	if err != nil {
		return nil, err
	}
	imports, namespace := header(lines, n.Location.Line)

	var b strings.Builder
	for _, imp := range imports {
		b.WriteString(imp + "\n")
	}
	if len(imports) > 0 {
		b.WriteByte('\n')
	}
	if namespace != "" {
		b.WriteString("namespace " + namespace + ";\n\n")
	}
	b.WriteString("public interface " + name + "\n{\n")
	for _, m := range res.Members {
		b.WriteString("    " + m + "\n")
	}
	b.WriteString("}\n")
	res.Content = b.String()

	if !execute {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := createFile(res.File, res.Content); err != nil {
		return res, err
	}
	res.Written = true

	idx := n.Location.Line - 1
	updated, ok := addBase(lines[idx], name)
	if !ok {
		res.Warning = "declaration of " + n.Name + " was left unchanged; add " + name + " to its base list"
		return res, nil
	}
	lines[idx] = updated
	if err := writeAtomic(n.Location.Path, lines, mode); err != nil {
		return res, err
	}
	res.Implemented = true
	return res, nil
}

// memberDecl turns a member signature into an interface member.
func memberDecl(m backends.Node) (string, bool) {
	sig := m.Signature
	if !strings.Contains(" "+sig+" ", " public ") || strings.Contains(" "+sig+" ", " static ") {
		return "", false
	}
	for _, stop := range []string{"{", "=>"} {
		if i := strings.Index(sig, stop); i >= 0 {
			sig = sig[:i]
		}
	}
	if i := strings.Index(sig, "="); i >= 0 && m.Kind != "method" {
		sig = sig[:i]
	}
	var kept []string
	for _, f := range strings.Fields(sig) {
		if dropModifiers[f] {
			continue
		}
		kept = append(kept, f)
	}
	decl := strings.TrimSuffix(strings.Join(kept, " "), ";")
	switch m.Kind {
	case "method":
		return decl + ";", true
	case "property":
		return decl + " { get; }", true
	default:
		return "", false
	}
}

// addBase appends iface to the base list on a type declaration line.
// Declarations with generic constraints are not touched.
func addBase(line, iface string) (string, bool) {
	head, tail := line, ""
	if i := strings.Index(line, "{"); i >= 0 {
		head, tail = line[:i], line[i:]
	}
	if strings.Contains(head, " where ") {
		return line, false
	}
	trimmed := strings.TrimRight(head, " \t")
	sep := " : "
	if strings.Contains(trimmed, ":") {
		sep = ", "
	}
	out := trimmed + sep + iface
	if tail != "" {
		out += " " + tail
	}
	return out, true
}
