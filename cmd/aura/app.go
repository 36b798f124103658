package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"aura/internal/backends"
	"aura/internal/backends/fixer"
	"aura/internal/backends/github"
	"aura/internal/backends/script"
	"aura/internal/buildfix"
	"aura/internal/config"
	"aura/internal/generate"
	"aura/internal/mcp"
	"aura/internal/patterns"
	"aura/internal/runner"
	"aura/internal/slogutil"
	"aura/internal/storage"
	"aura/internal/workflow"
)

// homeEnv points at the install directory holding scripts/ when the
// binary is not installed next to them.
const homeEnv = "AURA_HOME"

// app holds the collaborators shared by the commands.
type app struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	runner runner.Runner

	db   *storage.DB
	runs *storage.RunStore

	closers []io.Closer
}

// newApp loads config for the repository and opens storage. When toFile is
// set and file logging is enabled, logs go to .aura/logs/mcp.log instead of
// stderr, which keeps stdout-protocol clients unaffected by log noise.
func newApp(toFile bool) (*app, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{root: root, cfg: cfg, runner: runner.NewExecRunner(0)}
	a.logger, err = a.openLogger(toFile)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(config.ResolvePath(root, cfg.Storage.Path), a.logger)
	if err != nil {
		a.logger.Warn("Storage unavailable, workflows will not persist", "error", err.Error())
		return a, nil
	}
	a.db = db
	a.closers = append(a.closers, db)

	runs, err := storage.NewRunStore(db)
	if err != nil {
		a.logger.Warn("Run history unavailable", "error", err.Error())
		return a, nil
	}
	a.runs = runs
	return a, nil
}

func (a *app) openLogger(toFile bool) (*slog.Logger, error) {
	level := slogutil.LevelFromString(a.cfg.Logging.Level)
	if verbosityFlag > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verbosityFlag, quietFlag)
	}
	if !toFile || !a.cfg.Logging.File {
		return slogutil.NewLogger(os.Stderr, level), nil
	}
	logger, closer, err := slogutil.NewRotatingLogger(
		config.LogPath(a.root),
		level,
		slogutil.ParseSize(a.cfg.Logging.MaxSize),
		a.cfg.Logging.MaxBackups,
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)
	return logger, nil
}

func (a *app) Close() error {
	if a.runs != nil {
		a.runs.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// recorder returns the run store as a buildfix.Recorder, or nil.
func (a *app) recorder() buildfix.Recorder {
	if a.runs == nil {
		return nil
	}
	return a.runs
}

// fixer returns the configured fixer, or nil when disabled or unusable.
func (a *app) fixer() backends.Fixer {
	if !a.cfg.Fixer.Enabled {
		return nil
	}
	f, err := fixer.New(a.cfg.Fixer, a.logger)
	if err != nil {
		a.logger.Warn("Fixer disabled", "error", err.Error())
		return nil
	}
	return f
}

func (a *app) issueTracker() backends.IssueTracker {
	if a.cfg.Issues.Provider == "" {
		return nil
	}
	t, err := github.New(a.cfg.Issues, nil, a.logger)
	if err != nil {
		a.logger.Warn("Issue tracker disabled", "error", err.Error())
		return nil
	}
	return t
}

func (a *app) workflows() *workflow.Service {
	var store workflow.Store = workflow.NewMemoryStore()
	if a.db != nil {
		store = storage.NewWorkflowStore(a.db)
	}
	return workflow.NewService(store, a.issueTracker(), a.logger)
}

func (a *app) patternDirs() []string {
	dirs := make([]string, 0, len(a.cfg.Patterns.Dirs))
	for _, d := range a.cfg.Patterns.Dirs {
		dirs = append(dirs, config.ResolvePath(a.root, d))
	}
	return dirs
}

// serverOptions wires every collaborator the MCP server can use.
func (a *app) serverOptions() (mcp.Options, error) {
	reg, err := patterns.Load(a.logger, a.patternDirs()...)
	if err != nil {
		return mcp.Options{}, err
	}
	gen, err := generate.New()
	if err != nil {
		return mcp.Options{}, err
	}
	return mcp.Options{
		Root:      a.root,
		Config:    a.cfg,
		Runner:    a.runner,
		Fixer:     a.fixer(),
		Recorder:  a.recorder(),
		Workflows: a.workflows(),
		Patterns:  reg,
		Generator: gen,
		Scripts:   script.New(a.runner, a.cfg.Languages, scriptRoot(), a.logger),
	}, nil
}

// scriptRoot locates the directory that script paths in the languages
// config are relative to: $AURA_HOME, else the executable's directory.
func scriptRoot() string {
	if home := os.Getenv(homeEnv); home != "" {
		return home
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
