package mcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"aura/internal/backends"
	"aura/internal/backends/scip"
	"aura/internal/backends/script"
	"aura/internal/buildfix"
	"aura/internal/config"
	"aura/internal/generate"
	"aura/internal/operations"
	"aura/internal/patterns"
	"aura/internal/runner"
	"aura/internal/slogutil"
	"aura/internal/symbols"
	"aura/internal/workflow"
	"aura/internal/worktree"
)

// Options wires the server to its collaborators. Nil collaborators make the
// operations that need them report BACKEND_UNAVAILABLE.
type Options struct {
	// Root is the repository (or worktree) the server was started in.
	Root   string
	Config *config.Config
	Runner runner.Runner

	Index      backends.SemanticIndex
	Refactorer backends.Refactorer
	Fixer      backends.Fixer
	Recorder   buildfix.Recorder
	Workflows  *workflow.Service
	Patterns   *patterns.Registry
	Generator  *generate.Generator
	Scripts    *script.Backend

	// Graph replaces the SCIP index and tree-sitter workspace for every
	// query when set.
	Graph backends.CodeGraph
}

// MCPServer serves the tool catalog over line-delimited JSON-RPC.
type MCPServer struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex
	logger  *slog.Logger
	version string

	opts     Options
	cfg      *config.Config
	root     string
	resolver *worktree.Resolver

	// workspaces is the process-wide tree-sitter cache. validate
	// operations invalidate it before building.
	workspaces *symbols.Cache

	mu      sync.Mutex
	indexes map[string]*scip.Graph

	tools   map[string]ToolHandler
	routers map[string]*operations.Router
	catalog operations.Catalog
}

// NewMCPServer creates a server rooted at opts.Root.
func NewMCPServer(version string, opts Options, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Runner == nil {
		opts.Runner = runner.NewExecRunner(0)
	}
	root := opts.Root
	if root == "" {
		root, _ = os.Getwd()
	}

	s := &MCPServer{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		logger:   logger,
		version:  version,
		opts:     opts,
		cfg:      cfg,
		root:     root,
		resolver: worktree.NewResolver(cfg.Worktree.CaseInsensitive),
		workspaces: symbols.NewCache(symbols.Options{
			Ignore:      cfg.Search.Ignore,
			MaxFileSize: int64(cfg.Search.MaxFileSizeBytes),
			Logger:      logger,
		}),
		indexes: make(map[string]*scip.Graph),
		tools:   make(map[string]ToolHandler),
		routers: make(map[string]*operations.Router),
	}
	s.RegisterTools()
	return s
}

// Start processes messages until stdin is exhausted or ctx is cancelled.
// Requests are handled one at a time, in arrival order.
func (s *MCPServer) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting",
		"version", s.version,
		"root", s.root,
		"tools", len(s.tools),
	)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("MCP server shutting down (cancelled)")
			return nil
		}
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			var perr *errParse
			if errors.As(err, &perr) {
				s.logger.Warn("Discarding malformed message", "error", err.Error())
				if werr := s.writeMessage(NewErrorMessage(nullID, ParseError, "Parse error: "+perr.err.Error(), nil)); werr != nil {
					return werr
				}
				continue
			}
			s.logger.Error("Error reading message", "error", err.Error())
			return err
		}

		response := s.handleMessage(ctx, msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", "error", err.Error())
				return err
			}
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}

// Catalog returns the meta-tool routing tables.
func (s *MCPServer) Catalog() operations.Catalog {
	return s.catalog
}
