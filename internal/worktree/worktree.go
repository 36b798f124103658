// Package worktree detects linked git working copies and maps paths between
// a worktree and the primary repository that owns the index.
package worktree

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Info describes where a path lives. For paths outside any worktree,
// MainRepoPath is the repository root (or the path itself when it is not
// inside a repository) and WorktreePath is empty.
type Info struct {
	IsWorktree   bool   `json:"isWorktree"`
	WorktreePath string `json:"worktreePath,omitempty"`
	MainRepoPath string `json:"mainRepoPath"`
}

// Resolver probes the filesystem for worktree layout. It holds no state
// between calls; every Resolve re-reads the .git entries.
type Resolver struct {
	// CaseInsensitive folds case when matching path prefixes. Paths are
	// otherwise compared byte for byte after filepath.Clean.
	CaseInsensitive bool
}

// NewResolver creates a resolver with the given comparison contract.
func NewResolver(caseInsensitive bool) *Resolver {
	return &Resolver{CaseInsensitive: caseInsensitive}
}

// Resolve reports whether path is inside a linked worktree and, if so,
// which primary repository it belongs to.
func (r *Resolver) Resolve(path string) (Info, error) {
	abs, err := normalize(path)
	if err != nil {
		return Info{}, err
	}

	root, dotGit, ok := findDotGit(abs)
	if !ok {
		return Info{MainRepoPath: abs}, nil
	}

	st, err := os.Stat(dotGit)
	if err != nil {
		return Info{}, err
	}
	if st.IsDir() {
		return Info{MainRepoPath: root}, nil
	}

	gitDir, err := readGitDirFile(dotGit)
	if err != nil {
		return Info{}, err
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	common, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if err != nil {
		if os.IsNotExist(err) {
			// A .git file without commondir is a submodule checkout.
			return Info{MainRepoPath: root}, nil
		}
		return Info{}, err
	}
	commonDir := strings.TrimSpace(string(common))
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(gitDir, commonDir)
	}
	commonDir = filepath.Clean(commonDir)

	main := commonDir
	if filepath.Base(commonDir) == ".git" {
		main = filepath.Dir(commonDir)
	}
	return Info{IsWorktree: true, WorktreePath: root, MainRepoPath: main}, nil
}

// TranslateQuery maps a path under a worktree onto the same relative
// location in the main repository. Other paths are returned cleaned.
func (r *Resolver) TranslateQuery(path string) (string, Info, error) {
	info, err := r.Resolve(path)
	if err != nil {
		return "", Info{}, err
	}
	abs, err := normalize(path)
	if err != nil {
		return "", Info{}, err
	}
	if !info.IsWorktree {
		return abs, info, nil
	}
	return r.rebase(abs, info.WorktreePath, info.MainRepoPath), info, nil
}

// TranslateResult is the inverse of TranslateQuery: a path under the main
// repository is mapped back under the worktree it was queried from.
// Relative paths and paths outside the main repository pass through.
func (r *Resolver) TranslateResult(filePath string, info Info) string {
	if !info.IsWorktree || filePath == "" || !filepath.IsAbs(filePath) {
		return filePath
	}
	return r.rebase(filepath.Clean(filePath), info.MainRepoPath, info.WorktreePath)
}

// TranslateResults applies TranslateResult to each path in place.
func (r *Resolver) TranslateResults(paths []string, info Info) {
	for i := range paths {
		paths[i] = r.TranslateResult(paths[i], info)
	}
}

// Within reports whether path equals root or lies beneath it.
func (r *Resolver) Within(path, root string) bool {
	_, ok := r.relative(filepath.Clean(path), filepath.Clean(root))
	return ok
}

func (r *Resolver) rebase(path, from, to string) string {
	rel, ok := r.relative(path, from)
	if !ok {
		return path
	}
	if rel == "" {
		return to
	}
	return filepath.Join(to, rel)
}

// relative returns the remainder of path below root, preserving the
// original casing of the remainder.
func (r *Resolver) relative(path, root string) (string, bool) {
	if len(path) < len(root) {
		return "", false
	}
	head := path[:len(root)]
	if !r.equal(head, root) {
		return "", false
	}
	rest := path[len(root):]
	if rest == "" {
		return "", true
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return rest, true
	}
	if rest[0] != filepath.Separator {
		return "", false
	}
	return rest[1:], true
}

func (r *Resolver) equal(a, b string) bool {
	if r.CaseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func normalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// findDotGit walks up from path looking for a .git entry.
func findDotGit(path string) (root, dotGit string, ok bool) {
	dir := path
	if st, err := os.Stat(dir); err == nil && !st.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ".git")
		if _, err := os.Stat(candidate); err == nil {
			return dir, candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false
		}
		dir = parent
	}
}

func readGitDirFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "gitdir:"); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("%s: no gitdir entry", path)
}
