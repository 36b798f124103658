//go:build cgo

package symbols

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"aura/internal/language"
)

// Extractor extracts symbols from source files using tree-sitter.
// An Extractor is not safe for concurrent use.
type Extractor struct {
	parser *sitter.Parser
}

// NewExtractor creates a new symbol extractor.
func NewExtractor() *Extractor {
	return &Extractor{parser: sitter.NewParser()}
}

// IsAvailable returns whether symbol extraction is available.
func IsAvailable() bool { return true }

func grammar(lang language.Tag, path string) (*sitter.Language, error) {
	switch lang {
	case language.CSharp:
		return csharp.GetLanguage(), nil
	case language.Go:
		return golang.GetLanguage(), nil
	case language.Java:
		return java.GetLanguage(), nil
	case language.Python:
		return python.GetLanguage(), nil
	case language.Rust:
		return rust.GetLanguage(), nil
	case language.TypeScript:
		if strings.HasSuffix(path, ".tsx") || strings.HasSuffix(path, ".jsx") {
			return tsx.GetLanguage(), nil
		}
		return typescript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// ExtractSource extracts symbols from source bytes.
func (e *Extractor) ExtractSource(ctx context.Context, path string, source []byte, lang language.Tag) ([]Symbol, error) {
	p, err := e.Parse(ctx, path, source, lang)
	return p.Symbols, err
}

// Parse extracts symbols and the comment and string literal ranges from
// source bytes.
func (e *Extractor) Parse(ctx context.Context, path string, source []byte, lang language.Tag) (Parsed, error) {
	g, err := grammar(lang, path)
	if err != nil {
		return Parsed{}, err
	}
	e.parser.SetLanguage(g)
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Parsed{}, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	w := walker{lang: lang, source: source, path: path, rules: rulesFor(lang)}
	w.walk(tree.RootNode(), "")
	w.literals(tree.RootNode())
	sort.Slice(w.spans, func(i, j int) bool { return w.spans[i].Start < w.spans[j].Start })
	return Parsed{Symbols: w.out, Literals: w.spans}, nil
}

// nodeRules maps tree-sitter node types to symbol kinds for one grammar.
type nodeRules struct {
	types    map[string]string
	members  map[string]string
	heritage map[string]bool
}

func rulesFor(lang language.Tag) nodeRules {
	switch lang {
	case language.CSharp:
		return nodeRules{
			types: map[string]string{
				"class_declaration":     KindClass,
				"interface_declaration": KindInterface,
				"struct_declaration":    KindStruct,
				"record_declaration":    KindRecord,
				"enum_declaration":      KindEnum,
			},
			members: map[string]string{
				"method_declaration":      KindMethod,
				"constructor_declaration": KindConstructor,
				"property_declaration":    KindProperty,
				"field_declaration":       KindField,
			},
			heritage: map[string]bool{"base_list": true},
		}
	case language.TypeScript:
		return nodeRules{
			types: map[string]string{
				"class_declaration":          KindClass,
				"abstract_class_declaration": KindClass,
				"interface_declaration":      KindInterface,
				"enum_declaration":           KindEnum,
			},
			members: map[string]string{
				"function_declaration":   KindFunction,
				"method_definition":      KindMethod,
				"method_signature":       KindMethod,
				"public_field_definition": KindField,
				"property_signature":     KindProperty,
			},
			heritage: map[string]bool{"class_heritage": true, "extends_clause": true, "implements_clause": true, "extends_type_clause": true},
		}
	case language.Python:
		return nodeRules{
			types:    map[string]string{"class_definition": KindClass},
			members:  map[string]string{"function_definition": KindFunction},
			heritage: map[string]bool{"argument_list": true},
		}
	case language.Java:
		return nodeRules{
			types: map[string]string{
				"class_declaration":     KindClass,
				"interface_declaration": KindInterface,
				"enum_declaration":      KindEnum,
				"record_declaration":    KindRecord,
			},
			members: map[string]string{
				"method_declaration":      KindMethod,
				"constructor_declaration": KindConstructor,
				"field_declaration":       KindField,
			},
			heritage: map[string]bool{"superclass": true, "super_interfaces": true, "extends_interfaces": true, "type_list": true},
		}
	case language.Go:
		return nodeRules{
			types:   map[string]string{"type_spec": KindType},
			members: map[string]string{"function_declaration": KindFunction, "method_declaration": KindMethod},
		}
	case language.Rust:
		return nodeRules{
			types: map[string]string{
				"struct_item": KindStruct,
				"enum_item":   KindEnum,
				"trait_item":  KindInterface,
			},
			members: map[string]string{"function_item": KindFunction, "function_signature_item": KindFunction},
		}
	}
	return nodeRules{}
}

type walker struct {
	lang   language.Tag
	source []byte
	path   string
	rules  nodeRules
	out    []Symbol
	spans  []Span
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.source[n.StartByte():n.EndByte()])
}

func (w *walker) walk(n *sitter.Node, container string) {
	if n == nil {
		return
	}
	typ := n.Type()

	if kind, ok := w.rules.types[typ]; ok {
		if name := w.name(n); name != "" {
			sym := w.symbol(n, name, kind, container)
			if w.lang == language.Go {
				sym.Kind = goTypeKind(n)
			}
			sym.Bases = w.bases(n)
			w.out = append(w.out, sym)
			w.children(n, name)
			return
		}
	}

	if w.lang == language.Rust && typ == "impl_item" {
		// Methods in `impl Type` belong to Type; `impl Trait for Type`
		// records Trait as a base of Type.
		target := ""
		if t := n.ChildByFieldName("type"); t != nil {
			target = baseName(w.text(t))
		}
		if tr := n.ChildByFieldName("trait"); tr != nil && target != "" {
			w.out = append(w.out, Symbol{
				Name: target, Kind: KindImpl, Path: w.path,
				Line: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column) + 1,
				EndLine: int(n.EndPoint().Row) + 1, Bases: []string{baseName(w.text(tr))},
			})
		}
		w.children(n, target)
		return
	}

	if kind, ok := w.rules.members[typ]; ok {
		if typ == "field_declaration" && (w.lang == language.CSharp || w.lang == language.Java) {
			for _, name := range w.declarators(n) {
				w.out = append(w.out, w.symbol(n, name, KindField, container))
			}
			return
		}
		if name := w.name(n); name != "" {
			if container != "" && kind == KindFunction {
				kind = KindMethod
			}
			owner := container
			if w.lang == language.Go && typ == "method_declaration" {
				owner = w.receiver(n)
			}
			w.out = append(w.out, w.symbol(n, name, kind, owner))
		}
		// Nested functions keep the outer container.
		w.children(n, container)
		return
	}

	w.children(n, container)
}

func (w *walker) children(n *sitter.Node, container string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i), container)
	}
}

func (w *walker) symbol(n *sitter.Node, name, kind, container string) Symbol {
	return Symbol{
		Name:      name,
		Kind:      kind,
		Path:      w.path,
		Line:      int(n.StartPoint().Row) + 1,
		Column:    int(n.StartPoint().Column) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Container: container,
		Signature: signature(w.text(n)),
	}
}

func (w *walker) name(n *sitter.Node) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return w.text(nameNode)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier", "type_identifier", "property_identifier", "field_identifier":
			return w.text(c)
		}
	}
	return ""
}

// declarators returns the variable names of a field declaration.
func (w *walker) declarators(n *sitter.Node) []string {
	var names []string
	var visit func(*sitter.Node)
	visit = func(c *sitter.Node) {
		if c.Type() == "variable_declarator" {
			if name := w.name(c); name != "" {
				names = append(names, name)
			}
			return
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			visit(c.NamedChild(i))
		}
	}
	visit(n)
	return names
}

func (w *walker) bases(n *sitter.Node) []string {
	var out []string
	var visit func(*sitter.Node, bool)
	visit = func(c *sitter.Node, inside bool) {
		for i := 0; i < int(c.NamedChildCount()); i++ {
			child := c.NamedChild(i)
			switch {
			case w.rules.heritage[child.Type()]:
				visit(child, true)
			case inside && child.Type() == "keyword_argument":
			case inside:
				if b := baseName(w.text(child)); b != "" {
					out = append(out, b)
				}
			}
		}
	}
	visit(n, false)
	return out
}

func (w *walker) receiver(n *sitter.Node) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	var found string
	var visit func(*sitter.Node)
	visit = func(c *sitter.Node) {
		if found != "" {
			return
		}
		if c.Type() == "type_identifier" {
			found = w.text(c)
			return
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			visit(c.NamedChild(i))
		}
	}
	visit(recv)
	return found
}

// isLiteral reports whether a node type is a comment or a string or
// character literal in any supported grammar.
func isLiteral(typ string) bool {
	switch typ {
	case "character_literal", "char_literal", "rune_literal":
		return true
	}
	return strings.Contains(typ, "comment") || strings.Contains(typ, "string")
}

// Code nested inside string literals.
var interpolations = map[string]bool{
	"interpolation":         true,
	"template_substitution": true,
}

func (w *walker) literals(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if isLiteral(c.Type()) {
			w.literal(c)
			continue
		}
		w.literals(c)
	}
}

// literal records n as non-code, cutting out any interpolations.
func (w *walker) literal(n *sitter.Node) {
	start := int(n.StartByte())
	var visit func(*sitter.Node)
	visit = func(c *sitter.Node) {
		for i := 0; i < int(c.NamedChildCount()); i++ {
			child := c.NamedChild(i)
			if interpolations[child.Type()] {
				w.addSpan(start, int(child.StartByte()))
				w.literals(child)
				start = int(child.EndByte())
				continue
			}
			visit(child)
		}
	}
	visit(n)
	w.addSpan(start, int(n.EndByte()))
}

func (w *walker) addSpan(start, end int) {
	if end > start {
		w.spans = append(w.spans, Span{Start: start, End: end})
	}
}

func goTypeKind(spec *sitter.Node) string {
	if t := spec.ChildByFieldName("type"); t != nil {
		switch t.Type() {
		case "struct_type":
			return KindStruct
		case "interface_type":
			return KindInterface
		}
	}
	return KindType
}
