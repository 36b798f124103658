package rename

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Candidate is a symbol name related to a rename target by convention,
// with the name it should take after the rename.
type Candidate struct {
	Name     string
	NewName  string
	Relation string
}

// Strategy derives related symbol names from a rename. Implementations
// must be deterministic.
type Strategy interface {
	Candidates(oldName, newName, kind string) []Candidate
}

// StrategyFunc adapts a function to a Strategy.
type StrategyFunc func(oldName, newName, kind string) []Candidate

func (f StrategyFunc) Candidates(oldName, newName, kind string) []Candidate {
	return f(oldName, newName, kind)
}

// Relations produced by NamingConventions.
const (
	RelationBackingField = "backing_field"
	RelationParameter    = "parameter"
	RelationProperty     = "property"
	RelationInterface    = "interface"
	RelationTestClass    = "test_class"
	// RelationImplementation links IFoo to Foo.
	RelationImplementation = "implementation"
)

// NamingConventions relates PascalCase members to their _camel backing
// fields and camel parameters, and types to their I-prefixed interfaces
// and test classes. An I-prefixed interface is related to its unprefixed
// implementation.
type NamingConventions struct{}

func (NamingConventions) Candidates(oldName, newName, kind string) []Candidate {
	var out []Candidate
	add := func(name, renamed, relation string) {
		if name == "" || name == oldName || renamed == "" {
			return
		}
		for _, c := range out {
			if c.Name == name {
				return
			}
		}
		out = append(out, Candidate{Name: name, NewName: renamed, Relation: relation})
	}

	switch {
	case strings.HasPrefix(oldName, "_"):
		oldBase, newBase := strings.TrimLeft(oldName, "_"), strings.TrimLeft(newName, "_")
		add(upperFirst(oldBase), upperFirst(newBase), RelationProperty)
		add(lowerFirst(oldBase), lowerFirst(newBase), RelationParameter)
	case isUpper(oldName):
		add("_"+lowerFirst(oldName), "_"+lowerFirst(newName), RelationBackingField)
		add(lowerFirst(oldName), lowerFirst(newName), RelationParameter)
		if isTypeKind(kind) {
			add("I"+oldName, "I"+newName, RelationInterface)
			add(oldName+"Tests", newName+"Tests", RelationTestClass)
		}
		if kind == "interface" && len(oldName) > 1 && oldName[0] == 'I' && isUpper(oldName[1:]) {
			if len(newName) > 1 && newName[0] == 'I' && isUpper(newName[1:]) {
				add(oldName[1:], newName[1:], RelationImplementation)
			}
		}
	default:
		add(upperFirst(oldName), upperFirst(newName), RelationProperty)
		add("_"+oldName, "_"+lowerFirst(newName), RelationBackingField)
	}
	return out
}

func isTypeKind(kind string) bool {
	switch kind {
	case "class", "struct", "record", "type":
		return true
	}
	return false
}

func isUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
