package scip

import (
	"fmt"
	"strings"
)

// Suffix classifies a SCIP descriptor.
type Suffix byte

const (
	SuffixNamespace     Suffix = '/'
	SuffixType          Suffix = '#'
	SuffixTerm          Suffix = '.'
	SuffixMethod        Suffix = '('
	SuffixTypeParameter Suffix = '['
	SuffixParameter     Suffix = ')'
	SuffixMeta          Suffix = ':'
	SuffixMacro         Suffix = '!'
)

// Descriptor is one segment of a symbol path, e.g. `Widget#` or `Resize().`.
type Descriptor struct {
	Name   string
	Suffix Suffix
}

// Identifier is a parsed global SCIP symbol:
// <scheme> <manager> <package> <version> <descriptors>
type Identifier struct {
	Scheme      string
	Manager     string
	Package     string
	Version     string
	Descriptors []Descriptor
	Raw         string
}

// IsLocal reports whether symbol is document-local ("local 12").
func IsLocal(symbol string) bool {
	return strings.HasPrefix(symbol, "local ")
}

// ParseIdentifier parses a global SCIP symbol string.
func ParseIdentifier(symbol string) (*Identifier, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty SCIP symbol")
	}
	if IsLocal(symbol) {
		return nil, fmt.Errorf("local SCIP symbol: %s", symbol)
	}
	parts := splitSpaces(symbol, 5)
	if len(parts) < 5 {
		return nil, fmt.Errorf("invalid SCIP symbol: %s", symbol)
	}
	descs, err := parseDescriptors(parts[4])
	if err != nil {
		return nil, fmt.Errorf("invalid SCIP symbol %q: %w", symbol, err)
	}
	return &Identifier{
		Scheme:      parts[0],
		Manager:     unescapeSpace(parts[1]),
		Package:     unescapeSpace(parts[2]),
		Version:     unescapeSpace(parts[3]),
		Descriptors: descs,
		Raw:         symbol,
	}, nil
}

// Name is the last descriptor's name.
func (id *Identifier) Name() string {
	if len(id.Descriptors) == 0 {
		return ""
	}
	return id.Descriptors[len(id.Descriptors)-1].Name
}

// Last is the last descriptor.
func (id *Identifier) Last() Descriptor {
	if len(id.Descriptors) == 0 {
		return Descriptor{}
	}
	return id.Descriptors[len(id.Descriptors)-1]
}

// Container is the name of the closest enclosing type, if any.
func (id *Identifier) Container() string {
	for i := len(id.Descriptors) - 2; i >= 0; i-- {
		if id.Descriptors[i].Suffix == SuffixType {
			return id.Descriptors[i].Name
		}
	}
	return ""
}

// QualifiedName joins descriptor names with dots, skipping parameters.
func (id *Identifier) QualifiedName() string {
	names := make([]string, 0, len(id.Descriptors))
	for _, d := range id.Descriptors {
		switch d.Suffix {
		case SuffixParameter, SuffixTypeParameter:
			continue
		}
		names = append(names, d.Name)
	}
	return strings.Join(names, ".")
}

// splitSpaces splits on single spaces; a doubled space escapes a literal one.
func splitSpaces(s string, n int) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s) && len(parts) < n-1; i++ {
		if s[i] != ' ' {
			continue
		}
		if i+1 < len(s) && s[i+1] == ' ' {
			i++
			continue
		}
		parts = append(parts, s[start:i])
		start = i + 1
	}
	return append(parts, s[start:])
}

func unescapeSpace(s string) string {
	if s == "." {
		return ""
	}
	return strings.ReplaceAll(s, "  ", " ")
}

func parseDescriptors(s string) ([]Descriptor, error) {
	var out []Descriptor
	for i := 0; i < len(s); {
		switch s[i] {
		case '(':
			name, next, err := readName(s, i+1)
			if err != nil {
				return nil, err
			}
			if next >= len(s) || s[next] != ')' {
				return nil, fmt.Errorf("unterminated parameter at %d", i)
			}
			out = append(out, Descriptor{Name: name, Suffix: SuffixParameter})
			i = next + 1
			continue
		case '[':
			name, next, err := readName(s, i+1)
			if err != nil {
				return nil, err
			}
			if next >= len(s) || s[next] != ']' {
				return nil, fmt.Errorf("unterminated type parameter at %d", i)
			}
			out = append(out, Descriptor{Name: name, Suffix: SuffixTypeParameter})
			i = next + 1
			continue
		}

		name, next, err := readName(s, i)
		if err != nil {
			return nil, err
		}
		if next >= len(s) {
			return nil, fmt.Errorf("descriptor %q has no suffix", name)
		}
		switch c := s[next]; c {
		case '/', '#', '.', ':', '!':
			out = append(out, Descriptor{Name: name, Suffix: Suffix(c)})
			i = next + 1
		case '(':
			end := strings.IndexByte(s[next:], ')')
			if end < 0 || next+end+1 >= len(s) || s[next+end+1] != '.' {
				return nil, fmt.Errorf("malformed method descriptor %q", name)
			}
			out = append(out, Descriptor{Name: name, Suffix: SuffixMethod})
			i = next + end + 2
		default:
			return nil, fmt.Errorf("unexpected %q after %q", c, name)
		}
	}
	return out, nil
}

// readName reads a simple or backtick-escaped name starting at i.
func readName(s string, i int) (string, int, error) {
	if i < len(s) && s[i] == '`' {
		var b strings.Builder
		for j := i + 1; j < len(s); j++ {
			if s[j] != '`' {
				b.WriteByte(s[j])
				continue
			}
			if j+1 < len(s) && s[j+1] == '`' {
				b.WriteByte('`')
				j++
				continue
			}
			return b.String(), j + 1, nil
		}
		return "", 0, fmt.Errorf("unterminated escaped name")
	}
	j := i
	for j < len(s) && isIdentChar(s[j]) {
		j++
	}
	if j == i {
		return "", 0, fmt.Errorf("empty name at %d", i)
	}
	return s[i:j], j, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '+' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
