// Package symbols provides tree-sitter based symbol extraction and a
// workspace-scanning code graph used when no precomputed index exists.
package symbols

import (
	"sort"
	"strings"
)

// Symbol kinds.
const (
	KindClass       = "class"
	KindInterface   = "interface"
	KindStruct      = "struct"
	KindRecord      = "record"
	KindEnum        = "enum"
	KindType        = "type"
	KindImpl        = "impl"
	KindMethod      = "method"
	KindConstructor = "constructor"
	KindProperty    = "property"
	KindField       = "field"
	KindFunction    = "function"
)

// Symbol represents an extracted symbol from source code.
type Symbol struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Path      string   `json:"path"`
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	EndLine   int      `json:"endLine"`
	Container string   `json:"container,omitempty"`
	Signature string   `json:"signature,omitempty"`
	Bases     []string `json:"bases,omitempty"`
}

// Span is a half-open byte range of a source file.
type Span struct {
	Start int
	End   int
}

// Parsed is the extraction result for one source file. Literals holds
// the comment and string literal ranges ordered by offset; interpolated
// expressions inside strings are left out of them.
type Parsed struct {
	Symbols  []Symbol
	Literals []Span
}

// inLiteral reports whether offset falls inside one of the sorted spans.
func inLiteral(spans []Span, offset int) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > offset })
	return i < len(spans) && spans[i].Start <= offset
}

// IsType reports whether the symbol declares a type.
func (s Symbol) IsType() bool {
	switch s.Kind {
	case KindClass, KindInterface, KindStruct, KindRecord, KindEnum, KindType:
		return true
	}
	return false
}

// IsCallable reports whether the symbol has a body that can contain calls.
func (s Symbol) IsCallable() bool {
	switch s.Kind {
	case KindMethod, KindConstructor, KindFunction, KindProperty:
		return true
	}
	return false
}

const maxSignature = 200

// signature returns the declaration header: the first line, cut before
// any body brace.
func signature(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexByte(text, '{'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ":"))
	if len(text) > maxSignature {
		text = text[:maxSignature] + "..."
	}
	return text
}

// baseName normalizes a base type reference: generic arguments are
// dropped and only the last qualified segment is kept.
func baseName(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text[:1], "<([{") {
		return ""
	}
	if i := strings.IndexAny(text, "<[("); i >= 0 {
		text = text[:i]
	}
	if i := strings.LastIndex(text, "::"); i >= 0 {
		text = text[i+2:]
	}
	if i := strings.LastIndexByte(text, '.'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text)
}
