// Package language decides which target-language implementation handles a
// tool call. Detection is a pure function of the call arguments.
package language

import (
	"path/filepath"
	"sort"
	"strings"

	auraerrors "aura/internal/errors"
)

// Tag identifies a target language.
type Tag string

const (
	CSharp     Tag = "csharp"
	Python     Tag = "python"
	TypeScript Tag = "typescript"
	Go         Tag = "go"
	Rust       Tag = "rust"
	Java       Tag = "java"
)

// Default handles calls that carry no usable hint.
const Default = CSharp

var aliases = map[string]Tag{
	"csharp":     CSharp,
	"c#":         CSharp,
	"cs":         CSharp,
	"dotnet":     CSharp,
	"python":     Python,
	"py":         Python,
	"typescript": TypeScript,
	"ts":         TypeScript,
	"javascript": TypeScript,
	"js":         TypeScript,
	"go":         Go,
	"golang":     Go,
	"rust":       Rust,
	"rs":         Rust,
	"java":       Java,
}

var extensions = map[string]Tag{
	".cs":     CSharp,
	".csx":    CSharp,
	".csproj": CSharp,
	".sln":    CSharp,
	".slnx":   CSharp,
	".py":     Python,
	".pyi":    Python,
	".ts":     TypeScript,
	".tsx":    TypeScript,
	".mts":    TypeScript,
	".cts":    TypeScript,
	".js":     TypeScript,
	".jsx":    TypeScript,
	".mjs":    TypeScript,
	".cjs":    TypeScript,
	".go":     Go,
	".rs":     Rust,
	".java":   Java,
}

// Manifest files identify a language by name rather than extension.
var manifests = map[string]Tag{
	"pyproject.toml": Python,
	"setup.py":       Python,
	"setup.cfg":      Python,
	"tsconfig.json":  TypeScript,
	"package.json":   TypeScript,
	"go.mod":         Go,
	"cargo.toml":     Rust,
	"pom.xml":        Java,
	"build.gradle":   Java,
}

// Hints are the call arguments that influence detection.
type Hints struct {
	Language     string
	FilePath     string
	ProjectPath  string
	SolutionPath string
}

// Detect resolves the target language: an explicit language wins, then the
// extension of filePath, projectPath and solutionPath in that order, then
// Default. An explicit language that is not recognised is an error.
func Detect(h Hints) (Tag, error) {
	if h.Language != "" {
		tag, ok := Parse(h.Language)
		if !ok {
			return "", auraerrors.NewInvalidArgumentError("language",
				"unsupported language "+h.Language+"; expected one of "+strings.Join(Names(), ", "))
		}
		return tag, nil
	}
	for _, p := range []string{h.FilePath, h.ProjectPath, h.SolutionPath} {
		if tag, ok := FromPath(p); ok {
			return tag, nil
		}
	}
	return Default, nil
}

// Parse maps a language name or alias to its tag.
func Parse(name string) (Tag, bool) {
	tag, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return tag, ok
}

// FromPath infers a language from a manifest name or file extension.
func FromPath(p string) (Tag, bool) {
	if p == "" {
		return "", false
	}
	base := strings.ToLower(filepath.Base(p))
	if tag, ok := manifests[base]; ok {
		return tag, true
	}
	tag, ok := extensions[strings.ToLower(filepath.Ext(base))]
	return tag, ok
}

// FromExtension looks up a tag by file extension, with or without the dot.
func FromExtension(ext string) (Tag, bool) {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	tag, ok := extensions[strings.ToLower(ext)]
	return tag, ok
}

// ScriptBacked reports whether refactorings for tag run through an
// external script backend rather than the native implementation.
func (t Tag) ScriptBacked() bool {
	return t == Python || t == TypeScript
}

// SourceExtensions lists the source file extensions of tag.
func (t Tag) SourceExtensions() []string {
	var out []string
	for ext, tag := range extensions {
		if tag == t && ext != ".csproj" && !strings.HasPrefix(ext, ".sln") {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Names lists the canonical tags.
func Names() []string {
	return []string{string(CSharp), string(Python), string(TypeScript), string(Go), string(Rust), string(Java)}
}
