package buildfix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"aura/internal/backends"
	"aura/internal/config"
	auraerrors "aura/internal/errors"
	"aura/internal/runner"
	"aura/internal/slogutil"
)

// Iteration statuses.
const (
	StatusFixed      = "fixed"
	StatusFailed     = "failed"
	StatusAgentError = "agent_error"
)

// Terminal reasons.
const (
	ReasonSuccess              = "success"
	ReasonNoParseableErrors    = "no_parseable_errors"
	ReasonNoFixerAvailable     = "no_fixer_available"
	ReasonMaxIterationsReached = "max_iterations_reached"
)

// Iteration notes for iterations that did not apply a fix.
const (
	NoteUnparsedOutput = "unparsed_output"
	NoteNoFilesLocated = "no_files_located"
)

// maxFixerOutput caps the build output sent to the fixer.
const maxFixerOutput = 64 * 1024

// Iteration is the record of one failed build attempt. ManualReview holds
// the fixer response when it was not auto-applied.
type Iteration struct {
	Index        int           `json:"iteration"`
	Status       string        `json:"status"`
	ErrorCount   int           `json:"errorCount"`
	Errors       []BuildError  `json:"errors,omitempty"`
	FilesTouched []string      `json:"filesTouched"`
	Decision     Decision      `json:"decision,omitempty"`
	Note         string        `json:"note,omitempty"`
	ManualReview string        `json:"manualReview,omitempty"`
	Output       string        `json:"output"`
	Duration     time.Duration `json:"durationNs"`
}

// Result is the outcome of a loop run.
type Result struct {
	RunID       string        `json:"runId"`
	Success     bool          `json:"success"`
	Reason      string        `json:"reason"`
	Ecosystem   string        `json:"ecosystem"`
	Root        string        `json:"root"`
	Iterations  int           `json:"iterations"`
	History     []Iteration   `json:"history"`
	FinalErrors []BuildError  `json:"finalErrors,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"durationNs"`
}

// Options bounds the loop. OutputLimit truncates the build output kept
// per iteration.
type Options struct {
	MaxIterations  int
	MaxFilesPerFix int
	BuildTimeout   time.Duration
	OutputLimit    int
	Commands       map[string]config.CommandConfig
}

// OptionsFromConfig maps the buildFix config section.
func OptionsFromConfig(c config.BuildFixConfig) Options {
	return Options{
		MaxIterations:  c.MaxIterations,
		MaxFilesPerFix: c.MaxFilesPerFix,
		BuildTimeout:   time.Duration(c.BuildTimeoutSeconds) * time.Second,
		OutputLimit:    c.OutputLimitBytes,
		Commands:       c.Commands,
	}
}

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, r *Result) error
}

// Request starts a loop run.
type Request struct {
	Root string

	// Ecosystem overrides detection.
	Ecosystem string

	// MaxIterations overrides Options.MaxIterations when positive.
	MaxIterations int
}

// Loop runs build-fix cycles.
type Loop struct {
	runner   runner.Runner
	fixer    backends.Fixer
	recorder Recorder
	opts     Options
	logger   *slog.Logger
}

// NewLoop creates a loop. fixer and recorder may be nil.
func NewLoop(r runner.Runner, fixer backends.Fixer, recorder Recorder, opts Options, logger *slog.Logger) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}
	if opts.MaxFilesPerFix <= 0 {
		opts.MaxFilesPerFix = 3
	}
	if opts.OutputLimit <= 0 {
		opts.OutputLimit = 4000
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Loop{runner: r, fixer: fixer, recorder: recorder, opts: opts, logger: logger}
}

// Run drives the loop until the build passes or a terminal reason is hit.
// A build timeout returns a TIMEOUT error whose details carry the history
// so far. Cancellation returns ctx.Err() and no result.
func (l *Loop) Run(ctx context.Context, req Request) (*Result, error) {
	eco, root, err := l.resolve(req)
	if err != nil {
		return nil, err
	}
	maxIter := l.opts.MaxIterations
	if req.MaxIterations > 0 {
		maxIter = req.MaxIterations
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Ecosystem: eco.Name,
		Root:      root,
		History:   []Iteration{},
		StartedAt: time.Now(),
	}
	logger := l.logger.With("run", res.RunID, "ecosystem", eco.Name)
	logger.Info("build-fix started", "root", root, "maxIterations", maxIter)

	parsedAny := false
	for i := 1; i <= maxIter; i++ {
		start := time.Now()
		cmd := eco.BuildCommand(root)
		cmd.Timeout = l.opts.BuildTimeout
		out, err := l.runner.Run(ctx, cmd)
		res.Iterations = i
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Duration = time.Since(res.StartedAt)
			if auraerrors.Is(err, auraerrors.Timeout) {
				logger.Warn("build timed out", "iteration", i)
				return nil, auraerrors.NewTimeoutError(cmd.String(), l.opts.BuildTimeout.Milliseconds(), err).WithDetails(res)
			}
			return nil, auraerrors.NewOperationError("build", err)
		}

		if out.ExitCode == 0 {
			res.Success, res.Reason = true, ReasonSuccess
			res.FinalErrors = nil
			logger.Info("build passed", "iteration", i)
			return l.finish(ctx, res), nil
		}

		raw := out.Combined()
		it := Iteration{
			Index:        i,
			Status:       StatusFailed,
			FilesTouched: []string{},
			Output:       truncate(raw, l.opts.OutputLimit),
		}

		diags := Errors(eco.Parse(raw))
		it.ErrorCount, it.Errors = len(diags), diags
		res.FinalErrors = diags
		if len(diags) == 0 {
			it.Note = NoteUnparsedOutput
			logger.Warn("build failed without parseable errors", "iteration", i, "exitCode", out.ExitCode)
			res.History = append(res.History, done(it, start))
			continue
		}
		parsedAny = true

		if l.fixer == nil {
			res.History = append(res.History, done(it, start))
			res.Reason = ReasonNoFixerAvailable
			logger.Warn("no fixer configured", "errors", len(diags))
			return l.finish(ctx, res), nil
		}

		files := l.locate(root, diags)
		if len(files) == 0 {
			it.Note = NoteNoFilesLocated
			logger.Warn("no referenced files exist", "iteration", i, "errors", len(diags))
			res.History = append(res.History, done(it, start))
			continue
		}

		fixReq, err := fixRequest(eco.Name, raw, diags, root, files)
		if err != nil {
			return nil, auraerrors.NewOperationError("read source files", err)
		}
		response, err := l.fixer.Fix(ctx, fixReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			it.Status = StatusAgentError
			it.Note = err.Error()
			logger.Warn("fixer failed", "iteration", i, "error", err.Error())
			res.History = append(res.History, done(it, start))
			continue
		}

		blocks := ExtractCodeBlocks(response)
		it.Decision = ApplyPolicy(len(files), len(blocks))
		if it.Decision != Applied {
			it.ManualReview = truncate(response, l.opts.OutputLimit)
			logger.Info("fix needs manual review", "iteration", i, "decision", string(it.Decision), "files", len(files), "blocks", len(blocks))
			res.History = append(res.History, done(it, start))
			continue
		}

		if err := replaceFile(files[0], []byte(blocks[0].Content)); err != nil {
			return nil, auraerrors.NewOperationError("apply fix", err)
		}
		it.Status = StatusFixed
		it.FilesTouched = []string{files[0]}
		logger.Info("fix applied", "iteration", i, "file", files[0])
		res.History = append(res.History, done(it, start))
	}

	if parsedAny {
		res.Reason = ReasonMaxIterationsReached
	} else {
		res.Reason = ReasonNoParseableErrors
	}
	logger.Warn("build-fix gave up", "reason", res.Reason, "iterations", res.Iterations)
	return l.finish(ctx, res), nil
}

func (l *Loop) resolve(req Request) (Ecosystem, string, error) {
	root := req.Root
	if root == "" {
		return Ecosystem{}, "", auraerrors.NewInvalidArgumentError("path", "required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Ecosystem{}, "", auraerrors.NewInvalidArgumentError("path", err.Error())
	}
	name := req.Ecosystem
	if name == "" {
		p, err := DetectProject(abs)
		if err != nil {
			return Ecosystem{}, "", err
		}
		name = p.Ecosystem
	}
	eco, err := Lookup(name, l.opts.Commands)
	return eco, abs, err
}

// locate returns up to MaxFilesPerFix distinct existing files, in the
// order the errors reference them.
func (l *Loop) locate(root string, diags []BuildError) []string {
	seen := make(map[string]bool)
	var files []string
	for _, d := range diags {
		if len(files) >= l.opts.MaxFilesPerFix {
			break
		}
		p := d.FilePath
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			files = append(files, p)
		}
	}
	return files
}

func fixRequest(eco, raw string, diags []BuildError, root string, files []string) (backends.FixRequest, error) {
	req := backends.FixRequest{
		Ecosystem:   eco,
		BuildOutput: truncate(raw, maxFixerOutput),
	}
	for _, d := range diags {
		req.Errors = append(req.Errors, fmt.Sprintf("%s(%d,%d): %s %s: %s", d.FilePath, d.Line, d.Column, d.Severity, d.Code, d.Message))
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return req, err
		}
		rel, err := filepath.Rel(root, f)
		if err != nil {
			rel = f
		}
		req.Files = append(req.Files, backends.FixFile{Path: filepath.ToSlash(rel), Content: string(data)})
	}
	return req, nil
}

func (l *Loop) finish(ctx context.Context, res *Result) *Result {
	res.Duration = time.Since(res.StartedAt)
	if l.recorder != nil {
		if err := l.recorder.SaveRun(ctx, res); err != nil {
			l.logger.Warn("failed to record build-fix run", "run", res.RunID, "error", err.Error())
		}
	}
	return res
}

func done(it Iteration, start time.Time) Iteration {
	it.Duration = time.Since(start)
	return it
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (truncated)"
}
