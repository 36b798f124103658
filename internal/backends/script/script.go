// Package script drives per-language refactoring scripts. A script is run as
//
//	<interpreter> <script> <command> --project P --file F (--offset N | --start S --end E) [--new-name X] [--preview]
//
// and prints one JSON object describing the outcome.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"aura/internal/backends"
	"aura/internal/config"
	auraerrors "aura/internal/errors"
	"aura/internal/language"
	"aura/internal/runner"
	"aura/internal/slogutil"
)

// Script commands.
const (
	CmdRename          = "rename"
	CmdExtractMethod   = "extract-method"
	CmdExtractVariable = "extract-variable"
	CmdFindReferences  = "find-references"
	CmdFindDefinition  = "find-definition"
)

var commands = map[string]string{
	"rename":           CmdRename,
	"extract_method":   CmdExtractMethod,
	"extract_variable": CmdExtractVariable,
}

// Backend runs refactoring scripts for the configured languages.
type Backend struct {
	runner  runner.Runner
	scripts map[language.Tag]config.LanguageConfig
	root    string
	logger  *slog.Logger
}

// New creates a script backend. Relative script paths resolve against root.
// Languages whose names are not recognised are ignored.
func New(r runner.Runner, langs map[string]config.LanguageConfig, root string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	b := &Backend{runner: r, scripts: make(map[language.Tag]config.LanguageConfig), root: root, logger: logger}
	for name, lc := range langs {
		tag, ok := language.Parse(name)
		if !ok {
			logger.Warn("Ignoring script backend for unknown language", "language", name)
			continue
		}
		b.scripts[tag] = lc
	}
	return b
}

// ID returns the backend identifier.
func (b *Backend) ID() backends.BackendID { return backends.BackendScript }

// Supports reports whether a script is configured for tag.
func (b *Backend) Supports(tag language.Tag) bool {
	_, ok := b.scripts[tag]
	return ok
}

// output is the JSON printed by every script command.
type output struct {
	Success      bool            `json:"success"`
	Preview      bool            `json:"preview"`
	ChangedFiles json.RawMessage `json:"changedFiles"`
	Description  string          `json:"description"`
	Error        string          `json:"error"`
	ErrorType    string          `json:"errorType"`

	References []struct {
		File         string `json:"file"`
		Offset       int    `json:"offset"`
		IsDefinition bool   `json:"isDefinition"`
		IsWrite      bool   `json:"isWrite"`
	} `json:"references"`

	Found  bool   `json:"found"`
	File   string `json:"file"`
	Offset int    `json:"offset"`
	Line   int    `json:"line"`
}

type previewFile struct {
	File       string `json:"file"`
	OldContent string `json:"oldContent"`
	NewContent string `json:"newContent"`
}

// Refactor implements backends.Refactorer for rename, extract_method and
// extract_variable.
func (b *Backend) Refactor(ctx context.Context, req backends.RefactorRequest) (*backends.RefactorResult, error) {
	cmd, ok := commands[req.Operation]
	if !ok {
		return nil, auraerrors.NewInvalidArgumentError("operation", req.Operation+" is not supported by the script backend")
	}
	args := []string{"--project", req.ProjectPath, "--file", req.FilePath}
	if cmd == CmdRename {
		args = append(args, "--offset", strconv.Itoa(req.Offset))
	} else {
		args = append(args, "--start", strconv.Itoa(req.Start), "--end", strconv.Itoa(req.End))
	}
	args = append(args, "--new-name", req.NewName)
	if req.Preview {
		args = append(args, "--preview")
	}

	out, err := b.run(ctx, b.tagFor(req.Language, req.FilePath), req.ProjectPath, cmd, args)
	if err != nil {
		return nil, err
	}

	res := &backends.RefactorResult{
		Success:     out.Success,
		Preview:     out.Preview,
		Description: out.Description,
		Error:       out.Error,
		ErrorType:   out.ErrorType,
	}
	if len(out.ChangedFiles) > 0 {
		var paths []string
		if err := json.Unmarshal(out.ChangedFiles, &paths); err == nil {
			res.ChangedFiles = paths
		} else {
			var previews []previewFile
			if err := json.Unmarshal(out.ChangedFiles, &previews); err != nil {
				return nil, auraerrors.NewOperationError(cmd, fmt.Errorf("unexpected changedFiles: %w", err))
			}
			for _, p := range previews {
				res.ChangedFiles = append(res.ChangedFiles, p.File)
				res.Changes = append(res.Changes, backends.FileChange{
					Path:       p.File,
					Summary:    changeSummary(p.OldContent, p.NewContent),
					NewContent: p.NewContent,
				})
			}
		}
	}
	return res, nil
}

// FindReferencesAt implements backends.Navigator.
func (b *Backend) FindReferencesAt(ctx context.Context, lang, projectPath, filePath string, offset int) ([]backends.Reference, error) {
	out, err := b.run(ctx, b.tagFor(lang, filePath), projectPath, CmdFindReferences,
		[]string{"--project", projectPath, "--file", filePath, "--offset", strconv.Itoa(offset)})
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, scriptError(CmdFindReferences, out)
	}

	lines := newLineIndex()
	refs := make([]backends.Reference, 0, len(out.References))
	for _, r := range out.References {
		path := resolve(projectPath, r.File)
		line, col := lines.position(path, r.Offset)
		kind := "reference"
		switch {
		case r.IsDefinition:
			kind = "definition"
		case r.IsWrite:
			kind = "write"
		}
		refs = append(refs, backends.Reference{
			Kind:     kind,
			Location: backends.Location{Path: path, Line: line, Column: col},
		})
	}
	return refs, nil
}

// FindDefinitionAt implements backends.Navigator. A definition the script
// cannot find yields an empty slice.
func (b *Backend) FindDefinitionAt(ctx context.Context, lang, projectPath, filePath string, offset int) ([]backends.Location, error) {
	out, err := b.run(ctx, b.tagFor(lang, filePath), projectPath, CmdFindDefinition,
		[]string{"--project", projectPath, "--file", filePath, "--offset", strconv.Itoa(offset)})
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, scriptError(CmdFindDefinition, out)
	}
	if !out.Found {
		return []backends.Location{}, nil
	}
	path := resolve(projectPath, out.File)
	line, col := newLineIndex().position(path, out.Offset)
	if out.Line > 0 {
		line = out.Line
	}
	return []backends.Location{{Path: path, Line: line, Column: col}}, nil
}

func (b *Backend) tagFor(explicit, filePath string) language.Tag {
	if tag, ok := language.Parse(explicit); ok {
		return tag
	}
	if tag, ok := language.FromPath(filePath); ok {
		return tag
	}
	return ""
}

func (b *Backend) run(ctx context.Context, tag language.Tag, dir, cmd string, args []string) (*output, error) {
	lc, ok := b.scripts[tag]
	if !ok {
		return nil, auraerrors.NewBackendUnavailableError(
			fmt.Sprintf("script backend for %q", tag),
			"add an interpreter and script under \"languages\" in .aura/config.json")
	}

	script := config.ResolvePath(b.root, lc.Script)
	c := runner.Command{
		Name: lc.Interpreter,
		Args: append([]string{script, cmd}, args...),
		Dir:  dir,
	}
	if lc.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(lc.TimeoutSeconds) * time.Second
	}

	b.logger.Debug("Running script backend", "language", string(tag), "command", cmd)
	res, err := b.runner.Run(ctx, c)
	if err != nil {
		return nil, err
	}

	var out output
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &out); err != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return nil, auraerrors.NewOperationError(cmd, fmt.Errorf("exit code %d: %s", res.ExitCode, msg))
	}
	return &out, nil
}

func scriptError(cmd string, out *output) error {
	msg := out.Error
	if out.ErrorType != "" {
		msg = out.ErrorType + ": " + msg
	}
	return auraerrors.NewOperationError(cmd, fmt.Errorf("%s", msg))
}

func resolve(projectPath, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(projectPath, file)
}

func changeSummary(before, after string) string {
	return fmt.Sprintf("%d -> %d lines", strings.Count(before, "\n"), strings.Count(after, "\n"))
}

// lineIndex converts character offsets to 1-based line and column, reading
// each file once.
type lineIndex map[string]string

func newLineIndex() lineIndex { return make(lineIndex) }

func (li lineIndex) position(path string, offset int) (int, int) {
	content, ok := li[path]
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, 0
		}
		content = string(data)
		li[path] = content
	}
	line, col := 1, 1
	for i, n := 0, 0; i < len(content) && n < offset; n++ {
		r, size := utf8.DecodeRuneInString(content[i:])
		if r == '\n' {
			line, col = line+1, 1
		} else {
			col++
		}
		i += size
	}
	return line, col
}
