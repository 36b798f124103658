package rename

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	auraerrors "aura/internal/errors"
)

// FileRename records a file moved by a rename_file step.
type FileRename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExecuteResult reports what Execute changed. On failure ModifiedFiles
// still lists every file written before the failing step.
type ExecuteResult struct {
	Success       bool         `json:"success"`
	BlastRadius   *BlastRadius `json:"blastRadius"`
	ModifiedFiles []string     `json:"modifiedFiles"`
	RenamedFiles  []FileRename `json:"renamedFiles,omitempty"`
	Replacements  int          `json:"replacements"`
	Skipped       int          `json:"skipped,omitempty"`
	FailedFile    string       `json:"failedFile,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// Execute recomputes the blast radius of req and applies its plan, one
// file at a time. When expected fingerprints are given, a file whose
// content no longer matches is not written and execution stops.
//
// The returned error covers analysis failures and cancellation; write
// failures are reported in the result.
func (a *Analyzer) Execute(ctx context.Context, req Request, expected map[string]string) (*ExecuteResult, error) {
	br, err := a.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &ExecuteResult{BlastRadius: br, ModifiedFiles: []string{}}

	for _, f := range br.Files {
		want, ok := expected[f]
		if ok && want != br.Fingerprints[f] {
			res.FailedFile = f
			res.Error = auraerrors.NewPreconditionError(
				fmt.Sprintf("%s changed since the rename was analyzed", f),
				"re-run the analysis and review the new blast radius",
			).Error()
			return res, nil
		}
	}

	paths := make([]string, 0, len(br.edits))
	for p := range br.edits {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			return res, err
		}
		applied, skipped, err := applyFile(p, br.edits[p], br.Fingerprints[p])
		res.Skipped += skipped
		if err != nil {
			res.FailedFile = p
			res.Error = err.Error()
			a.logger.Warn("rename write failed", "file", p, "modified", len(res.ModifiedFiles), "error", err.Error())
			return res, nil
		}
		if applied > 0 {
			res.Replacements += applied
			res.ModifiedFiles = append(res.ModifiedFiles, p)
		}
	}

	for _, step := range br.SuggestedPlan {
		if step.Type != StepRenameFile {
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			return res, err
		}
		if _, err := os.Stat(step.NewFile); err == nil {
			res.FailedFile = step.File
			res.Error = fmt.Sprintf("cannot rename %s: %s already exists", step.File, step.NewFile)
			return res, nil
		}
		if err := os.Rename(step.File, step.NewFile); err != nil {
			res.FailedFile = step.File
			res.Error = err.Error()
			return res, nil
		}
		res.RenamedFiles = append(res.RenamedFiles, FileRename{From: step.File, To: step.NewFile})
	}

	res.Success = true
	a.logger.Info("rename executed",
		"symbol", req.Symbol,
		"newName", req.NewName,
		"files", len(res.ModifiedFiles),
		"replacements", res.Replacements,
	)
	return res, nil
}

// applyFile rewrites p with every edit that still matches its location.
// The file is replaced atomically; fingerprint guards against a change
// since analysis.
func applyFile(p string, edits []edit, fingerprint string) (applied, skipped int, err error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return 0, 0, err
	}
	if fingerprint != "" && Fingerprint(data) != fingerprint {
		return 0, 0, fmt.Errorf("%s changed during rename", p)
	}

	lines := strings.SplitAfter(string(data), "\n")
	sorted := append([]edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].line != sorted[j].line {
			return sorted[i].line > sorted[j].line
		}
		return sorted[i].column > sorted[j].column
	})

	last := edit{line: -1}
	for _, e := range sorted {
		if e.line == last.line && e.column == last.column {
			continue
		}
		last = e
		if e.line > len(lines) || e.column < 1 {
			skipped++
			continue
		}
		line := lines[e.line-1]
		start := e.column - 1
		if start+len(e.from) > len(line) || line[start:start+len(e.from)] != e.from {
			skipped++
			continue
		}
		lines[e.line-1] = line[:start] + e.to + line[start+len(e.from):]
		applied++
	}
	if applied == 0 {
		return 0, skipped, nil
	}

	if err := writeAtomic(p, []byte(strings.Join(lines, ""))); err != nil {
		return 0, skipped, err
	}
	return applied, skipped, nil
}

func writeAtomic(p string, data []byte) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".rename-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, info.Mode().Perm()); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, p); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
