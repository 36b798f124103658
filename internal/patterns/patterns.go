// Package patterns loads reusable code patterns from the embedded builtin
// set and from user YAML or TOML files.
package patterns

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"aura/internal/slogutil"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// SourceBuiltin marks patterns shipped with the binary.
const SourceBuiltin = "builtin"

// Pattern is a named, language-specific code recipe. Content may contain
// {{Placeholder}} markers.
type Pattern struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Title       string   `json:"title" yaml:"title" toml:"title"`
	Description string   `json:"description" yaml:"description" toml:"description"`
	Language    string   `json:"language" yaml:"language" toml:"language"`
	Tags        []string `json:"tags,omitempty" yaml:"tags" toml:"tags"`
	Content     string   `json:"content,omitempty" yaml:"content" toml:"content"`
	Source      string   `json:"source" yaml:"-" toml:"-"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Language string
	Tag      string
}

// Registry holds patterns by name. Later sources override earlier ones.
type Registry struct {
	patterns map[string]Pattern
	logger   *slog.Logger
}

// tomlFile is the TOML layout: [[pattern]] tables.
type tomlFile struct {
	Pattern []Pattern `toml:"pattern"`
}

// Load reads the builtin patterns and then every .yaml, .yml and .toml
// file in dirs. Missing directories are skipped.
func Load(logger *slog.Logger, dirs ...string) (*Registry, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	r := &Registry{patterns: make(map[string]Pattern), logger: logger}

	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile("builtin/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := r.add(data, e.Name(), SourceBuiltin); err != nil {
			return nil, err
		}
	}

	for _, dir := range dirs {
		if err := r.loadDir(dir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml", ".toml":
		default:
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := r.add(data, p, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) add(data []byte, name, source string) error {
	var list []Pattern
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		var f tomlFile
		if _, err := toml.Decode(string(data), &f); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		list = f.Pattern
	} else if err := yaml.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	for _, p := range list {
		if p.Name == "" {
			return fmt.Errorf("parse %s: pattern without a name", name)
		}
		p.Language = strings.ToLower(p.Language)
		p.Source = source
		if prev, ok := r.patterns[p.Name]; ok {
			r.logger.Debug("pattern overridden", "name", p.Name, "previous", prev.Source, "source", source)
		}
		r.patterns[p.Name] = p
	}
	return nil
}

// Get returns the named pattern.
func (r *Registry) Get(name string) (Pattern, bool) {
	p, ok := r.patterns[name]
	return p, ok
}

// List returns matching patterns sorted by name.
func (r *Registry) List(f Filter) []Pattern {
	out := []Pattern{}
	for _, p := range r.patterns {
		if f.Language != "" && !strings.EqualFold(p.Language, f.Language) {
			continue
		}
		if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of patterns.
func (r *Registry) Len() int { return len(r.patterns) }

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
