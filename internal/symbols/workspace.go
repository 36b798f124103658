package symbols

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"aura/internal/backends"
	"aura/internal/language"
	"aura/internal/slogutil"
)

// Options configures workspace scanning.
type Options struct {
	// Ignore lists directory base names that are never descended into.
	Ignore      []string
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Cache holds one Workspace per repository root. Parsed content stays
// cached until Invalidate or InvalidateAll is called.
type Cache struct {
	opts Options

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewCache creates an empty workspace cache.
func NewCache(opts Options) *Cache {
	return &Cache{opts: opts, workspaces: make(map[string]*Workspace)}
}

// Get returns the workspace for root, creating it on first use.
func (c *Cache) Get(root string) *Workspace {
	root = cleanRoot(root)
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workspaces[root]
	if !ok {
		w = NewWorkspace(root, c.opts)
		c.workspaces[root] = w
	}
	return w
}

// Invalidate drops the cached content of root.
func (c *Cache) Invalidate(root string) {
	root = cleanRoot(root)
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.workspaces[root]; ok {
		w.Invalidate()
	}
}

// InvalidateAll drops every cached workspace.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.workspaces {
		w.Invalidate()
	}
}

func cleanRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

type sourceFile struct {
	path     string
	lines    []string
	starts   []int
	symbols  []Symbol
	literals []Span
}

// code reports whether the byte at column col (0-based) of line (0-based)
// lies outside comments and string literals.
func (f *sourceFile) code(line, col int) bool {
	return !inLiteral(f.literals, f.starts[line]+col)
}

func newSourceFile(path string, data []byte) *sourceFile {
	f := &sourceFile{path: path, lines: strings.Split(string(data), "\n")}
	f.starts = make([]int, len(f.lines))
	off := 0
	for i, line := range f.lines {
		f.starts[i] = off
		off += len(line) + 1
	}
	return f
}

// Workspace is a parsed view of the source files under a root. It
// implements backends.CodeGraph.
type Workspace struct {
	root   string
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	files  []*sourceFile
}

// NewWorkspace creates a workspace rooted at root. Nothing is read until
// the first query.
func NewWorkspace(root string, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Workspace{root: cleanRoot(root), opts: opts, logger: logger}
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Invalidate forces the next query to re-read the workspace.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	w.loaded = false
	w.files = nil
	w.mu.Unlock()
}

// Symbols returns every extracted symbol, ordered by path and line.
func (w *Workspace) Symbols(ctx context.Context) ([]Symbol, error) {
	files, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []Symbol
	for _, f := range files {
		out = append(out, f.symbols...)
	}
	return out, nil
}

func (w *Workspace) load(ctx context.Context) ([]*sourceFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded {
		return w.files, nil
	}

	paths, err := w.collect()
	if err != nil {
		return nil, err
	}

	files := make([]*sourceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i] = w.parse(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := files[:0]
	for _, f := range files {
		if f != nil {
			kept = append(kept, f)
		}
	}
	w.files, w.loaded = kept, true
	w.logger.Debug("workspace scanned", "root", w.root, "files", len(kept))
	return kept, nil
}

func (w *Workspace) collect() ([]string, error) {
	ignore := make(map[string]bool, len(w.opts.Ignore))
	for _, name := range w.opts.Ignore {
		ignore[name] = true
	}
	var paths []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == w.root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if p != w.root && ignore[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := language.FromExtension(filepath.Ext(p)); !ok {
			return nil
		}
		if w.opts.MaxFileSize > 0 {
			if info, err := d.Info(); err == nil && info.Size() > w.opts.MaxFileSize {
				return nil
			}
		}
		paths = append(paths, p)
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func (w *Workspace) parse(ctx context.Context, p string) *sourceFile {
	data, err := os.ReadFile(p)
	if err != nil {
		w.logger.Debug("skipping unreadable file", "path", p, "error", err.Error())
		return nil
	}
	f := newSourceFile(p, data)
	lang, _ := language.FromExtension(filepath.Ext(p))
	parsed, err := NewExtractor().Parse(ctx, p, data, lang)
	if err != nil {
		w.logger.Debug("symbol extraction failed", "path", p, "error", err.Error())
		return f
	}
	f.symbols, f.literals = parsed.Symbols, parsed.Literals
	return f
}

func (w *Workspace) ID() backends.BackendID { return backends.BackendTreeSitter }

// IsAvailable reports whether the root is a readable directory.
func (w *Workspace) IsAvailable() bool {
	info, err := os.Stat(w.root)
	return err == nil && info.IsDir()
}

func (w *Workspace) FindNodes(ctx context.Context, q backends.NodeQuery) ([]backends.Node, error) {
	syms, err := w.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q.Name)
	var out []backends.Node
	for _, s := range syms {
		if s.Kind == KindImpl {
			continue
		}
		if q.Kind != "" && s.Kind != q.Kind {
			continue
		}
		if q.Exact && s.Name != q.Name {
			continue
		}
		if !q.Exact && !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		if q.Path != "" && !w.underPath(s.Path, q.Path) {
			continue
		}
		out = append(out, w.node(s))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (w *Workspace) underPath(p, filter string) bool {
	if !filepath.IsAbs(filter) {
		filter = filepath.Join(w.root, filter)
	}
	return p == filter || strings.HasPrefix(p, filter+string(filepath.Separator))
}

func (w *Workspace) FindImplementations(ctx context.Context, typeName string) ([]backends.Node, error) {
	return w.withBase(ctx, typeName, true)
}

func (w *Workspace) FindDerivedTypes(ctx context.Context, typeName string) ([]backends.Node, error) {
	return w.withBase(ctx, typeName, false)
}

func (w *Workspace) withBase(ctx context.Context, typeName string, implementations bool) ([]backends.Node, error) {
	syms, err := w.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	types := make(map[string]Symbol)
	for _, s := range syms {
		if s.IsType() {
			if _, seen := types[s.Name]; !seen {
				types[s.Name] = s
			}
		}
	}

	seen := make(map[string]bool)
	var out []backends.Node
	for _, s := range syms {
		if (!s.IsType() && s.Kind != KindImpl) || !contains(s.Bases, typeName) {
			continue
		}
		target := s
		if s.Kind == KindImpl {
			if t, ok := types[s.Name]; ok {
				target = t
			}
		}
		if implementations && target.Kind == KindInterface {
			continue
		}
		n := w.node(target)
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out, nil
}

func (w *Workspace) GetTypeMembers(ctx context.Context, typeName string) ([]backends.Node, error) {
	syms, err := w.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	var out []backends.Node
	for _, s := range syms {
		if s.Container == typeName && !s.IsType() && s.Kind != KindImpl {
			out = append(out, w.node(s))
		}
	}
	return out, nil
}

// FindReferences scans file text for whole-word occurrences of symbol.
// Occurrences inside comments and string literals are not references.
func (w *Workspace) FindReferences(ctx context.Context, symbol string) ([]backends.Reference, error) {
	if symbol == "" {
		return nil, nil
	}
	files, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b`)

	var out []backends.Reference
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		decls := declLines(f, symbol)
		for i, line := range f.lines {
			for _, m := range re.FindAllStringIndex(line, -1) {
				if !f.code(i, m[0]) {
					continue
				}
				kind := "reference"
				if decls[i+1] {
					kind = "definition"
				}
				out = append(out, backends.Reference{
					Kind:    kind,
					Context: strings.TrimSpace(line),
					Location: backends.Location{
						Path:      f.path,
						Line:      i + 1,
						Column:    m[0] + 1,
						EndLine:   i + 1,
						EndColumn: m[1] + 1,
					},
				})
			}
		}
	}
	return out, nil
}

// FindCallers returns the innermost callable enclosing each call site of
// symbol.
func (w *Workspace) FindCallers(ctx context.Context, symbol string) ([]backends.Node, error) {
	if symbol == "" {
		return nil, nil
	}
	files, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\s*\(`)

	seen := make(map[string]bool)
	var out []backends.Node
	for _, f := range files {
		decls := declLines(f, symbol)
		for i, line := range f.lines {
			if decls[i+1] || !callOnLine(f, i, re.FindAllStringIndex(line, -1)) {
				continue
			}
			caller, ok := enclosing(f.symbols, i+1)
			if !ok {
				continue
			}
			n := w.node(caller)
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func callOnLine(f *sourceFile, line int, matches [][]int) bool {
	for _, m := range matches {
		if f.code(line, m[0]) {
			return true
		}
	}
	return false
}

func declLines(f *sourceFile, name string) map[int]bool {
	lines := make(map[int]bool)
	for _, s := range f.symbols {
		if s.Name == name {
			lines[s.Line] = true
		}
	}
	return lines
}

func enclosing(syms []Symbol, line int) (Symbol, bool) {
	var best Symbol
	found := false
	for _, s := range syms {
		if !s.IsCallable() || line < s.Line || line > s.EndLine {
			continue
		}
		if !found || s.Line > best.Line {
			best, found = s, true
		}
	}
	return best, found
}

func (w *Workspace) node(s Symbol) backends.Node {
	rel, err := filepath.Rel(w.root, s.Path)
	if err != nil {
		rel = s.Path
	}
	qualified := s.Name
	if s.Container != "" {
		qualified = s.Container + "." + s.Name
	}
	return backends.Node{
		ID:        fmt.Sprintf("%s#%s@%d", filepath.ToSlash(rel), qualified, s.Line),
		Name:      s.Name,
		Kind:      s.Kind,
		Container: s.Container,
		Signature: s.Signature,
		Bases:     s.Bases,
		Location: backends.Location{
			Path:    s.Path,
			Line:    s.Line,
			Column:  s.Column,
			EndLine: s.EndLine,
		},
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

var _ backends.CodeGraph = (*Workspace)(nil)
