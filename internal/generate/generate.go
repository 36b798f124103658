// Package generate renders new source files from per-language templates:
// a type skeleton, or a test scaffold for an existing type.
package generate

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	auraerrors "aura/internal/errors"
	"aura/internal/language"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Kinds accepted for generated types.
var Kinds = []string{"class", "interface", "record", "struct"}

// Member is a property or method of the generated type.
type Member struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"` // "property" or "method"
	Type string `json:"type,omitempty"`
}

// Request describes the file to generate.
type Request struct {
	Language  language.Tag
	Name      string
	Kind      string
	Namespace string
	Module    string
	Dir       string
	Members   []Member
}

// File is a rendered file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Exists  bool   `json:"exists"`
	Written bool   `json:"written"`
}

// Generator holds the parsed templates, one set per language.
type Generator struct {
	sets map[language.Tag]*template.Template
}

// New parses the embedded templates.
func New() (*Generator, error) {
	g := &Generator{sets: make(map[language.Tag]*template.Template)}
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		tag, ok := language.Parse(name)
		if !ok {
			return nil, fmt.Errorf("template %s: unknown language", e.Name())
		}
		t, err := template.New(e.Name()).Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		g.sets[tag] = t
	}
	return g, nil
}

// Languages lists the languages with templates.
func (g *Generator) Languages() []string {
	var out []string
	for _, name := range language.Names() {
		if _, ok := g.sets[language.Tag(name)]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Type renders a new type file.
func (g *Generator) Type(req Request) (*File, error) {
	if req.Kind != "" && !validKind(req.Kind) {
		return nil, auraerrors.NewInvalidArgumentError("kind", "must be one of "+strings.Join(Kinds, ", "))
	}
	return g.render(req, "type", "typefile")
}

// Tests renders a test scaffold with one case per member.
func (g *Generator) Tests(req Request) (*File, error) {
	return g.render(req, "tests", "testsfile")
}

func (g *Generator) render(req Request, body, file string) (*File, error) {
	t, ok := g.sets[req.Language]
	if !ok {
		return nil, auraerrors.NewInvalidArgumentError("language",
			fmt.Sprintf("no templates for %s; expected one of %s", req.Language, strings.Join(g.Languages(), ", ")))
	}
	if req.Name == "" {
		return nil, auraerrors.NewInvalidArgumentError("name", "required")
	}

	var name, content bytes.Buffer
	if err := t.ExecuteTemplate(&name, file, req); err != nil {
		return nil, auraerrors.NewOperationError("render "+file, err)
	}
	if err := t.ExecuteTemplate(&content, body, req); err != nil {
		return nil, auraerrors.NewOperationError("render "+body, err)
	}

	f := &File{
		Path:    filepath.Join(req.Dir, name.String()),
		Content: content.String(),
	}
	if _, err := os.Stat(f.Path); err == nil {
		f.Exists = true
	}
	return f, nil
}

// Write creates f on disk. Existing files are never overwritten.
func Write(f *File) error {
	if f.Exists {
		return auraerrors.NewPreconditionError(fmt.Sprintf("%s already exists", f.Path), "choose another name or directory")
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(f.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			f.Exists = true
			return auraerrors.NewPreconditionError(fmt.Sprintf("%s already exists", f.Path), "choose another name or directory")
		}
		return err
	}
	if _, err := out.WriteString(f.Content); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	f.Written = true
	return nil
}

func validKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
