// Package search implements regex text search over a repository tree.
package search

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	auraerrors "aura/internal/errors"
	"aura/internal/language"
)

// maxLineLength skips minified or encoded lines.
const maxLineLength = 1000

// Options bounds a search.
type Options struct {
	// Ignore lists directory base names that are never descended into.
	Ignore      []string
	MaxFileSize int64
	// MaxResults caps the match count; 0 means unbounded.
	MaxResults int
}

// Query selects what to match.
type Query struct {
	Pattern string
	// Path restricts the search to a file or directory, relative to root
	// or absolute.
	Path            string
	Language        language.Tag
	CaseInsensitive bool
}

// Match is one matching line.
type Match struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Text   string `json:"text"`
}

// Result holds the matches in path then line order.
type Result struct {
	Matches      []Match `json:"matches"`
	FilesScanned int     `json:"filesScanned"`
	Truncated    bool    `json:"truncated"`
}

// Text searches root for lines matching q.Pattern. Match paths are absolute.
func Text(ctx context.Context, root string, q Query, opts Options) (*Result, error) {
	if q.Pattern == "" {
		return nil, auraerrors.NewInvalidArgumentError("query", "required")
	}
	expr := q.Pattern
	if q.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, auraerrors.NewInvalidArgumentError("query", "invalid regular expression: "+err.Error())
	}

	start := root
	if q.Path != "" {
		start = q.Path
		if !filepath.IsAbs(start) {
			start = filepath.Join(root, start)
		}
	}
	files, err := findFiles(start, q.Language, opts)
	if err != nil {
		return nil, err
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = int(^uint(0) >> 1)
	}
	res := &Result{Matches: []Match{}}
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.FilesScanned++
		full, err := scanFile(p, re, limit-len(res.Matches), res)
		if err != nil {
			continue
		}
		if full {
			res.Truncated = true
			break
		}
	}
	return res, nil
}

func findFiles(start string, lang language.Tag, opts Options) ([]string, error) {
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[name] = true
	}
	var exts map[string]bool
	if lang != "" {
		exts = map[string]bool{}
		for _, e := range lang.SourceExtensions() {
			exts[e] = true
		}
	}

	var files []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == start {
				return auraerrors.NewNotFoundError("Path", start)
			}
			return nil
		}
		if d.IsDir() {
			if p != start && ignore[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if exts != nil && !exts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		if opts.MaxFileSize > 0 {
			if info, err := d.Info(); err == nil && info.Size() > opts.MaxFileSize {
				return nil
			}
		}
		if isBinaryFile(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// scanFile appends matches from p to res. It reports whether the result
// limit was hit before the file was exhausted.
func scanFile(p string, re *regexp.Regexp, remaining int, res *Result) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) > maxLineLength {
			continue
		}
		loc := re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if remaining <= 0 {
			return true, nil
		}
		res.Matches = append(res.Matches, Match{
			Path:   p,
			Line:   lineNum,
			Column: loc[0] + 1,
			Text:   strings.TrimSpace(line),
		})
		remaining--
	}
	return false, scanner.Err()
}

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".zip": true, ".tar": true, ".gz": true, ".png": true,
	".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".woff": true, ".woff2": true, ".pyc": true,
	".class": true, ".o": true, ".a": true, ".scip": true,
}

// isBinaryFile checks the extension, then the first 512 bytes for NUL.
func isBinaryFile(p string) bool {
	if binaryExts[strings.ToLower(filepath.Ext(p))] {
		return true
	}
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return false
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
