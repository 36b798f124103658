// Package backends defines the collaborator interfaces the tool handlers
// query (code graph, semantic index, refactoring engines, fixer, issue
// tracker) and the fallback chain that orders code-graph implementations.
package backends

import (
	"context"
)

// BackendID uniquely identifies a backend type
type BackendID string

const (
	// BackendSCIP answers structural queries from a precomputed SCIP index
	BackendSCIP BackendID = "scip"
	// BackendTreeSitter answers structural queries by parsing the workspace
	BackendTreeSitter BackendID = "treesitter"
	// BackendScript runs an external per-language refactoring script
	BackendScript BackendID = "script"
)

// Location represents a position in source code. Paths are absolute.
type Location struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
	EndColumn int    `json:"endColumn,omitempty"`
}

// Node is a symbol in the code graph.
type Node struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Container string   `json:"container,omitempty"`
	Signature string   `json:"signature,omitempty"`
	Bases     []string `json:"bases,omitempty"`
	Location  Location `json:"location"`
}

// Reference is one occurrence of a symbol.
type Reference struct {
	SymbolID string   `json:"symbolId,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	Context  string   `json:"context,omitempty"`
	Location Location `json:"location"`
}

// NodeQuery selects nodes by name.
type NodeQuery struct {
	Name  string
	Kind  string
	Path  string
	Exact bool
	Limit int
}

// CodeGraph answers structural questions about a repository.
type CodeGraph interface {
	ID() BackendID
	IsAvailable() bool

	FindNodes(ctx context.Context, q NodeQuery) ([]Node, error)
	FindCallers(ctx context.Context, symbol string) ([]Node, error)
	FindImplementations(ctx context.Context, typeName string) ([]Node, error)
	FindDerivedTypes(ctx context.Context, typeName string) ([]Node, error)
	GetTypeMembers(ctx context.Context, typeName string) ([]Node, error)
	FindReferences(ctx context.Context, symbol string) ([]Reference, error)
}

// Chunk is one ranked semantic search hit.
type Chunk struct {
	Path      string  `json:"path"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// QueryOptions narrows a semantic query.
type QueryOptions struct {
	Limit    int
	Language string
	Path     string
}

// SemanticIndex answers natural-language code search.
type SemanticIndex interface {
	Query(ctx context.Context, text string, opts QueryOptions) ([]Chunk, error)
}

// RefactorRequest carries every argument any refactoring engine accepts;
// each engine reads the fields its operation needs.
type RefactorRequest struct {
	Operation    string         `json:"operation"`
	Language     string         `json:"language,omitempty"`
	SymbolName   string         `json:"symbolName,omitempty"`
	NewName      string         `json:"newName,omitempty"`
	SolutionPath string         `json:"solutionPath,omitempty"`
	ProjectPath  string         `json:"projectPath,omitempty"`
	FilePath     string         `json:"filePath,omitempty"`
	Offset       int            `json:"offset,omitempty"`
	Start        int            `json:"start,omitempty"`
	End          int            `json:"end,omitempty"`
	Preview      bool           `json:"preview"`
	Options      map[string]any `json:"options,omitempty"`
}

// FileChange describes a change an engine made or would make.
type FileChange struct {
	Path       string `json:"path"`
	Summary    string `json:"summary,omitempty"`
	NewContent string `json:"newContent,omitempty"`
}

// RefactorResult is the outcome of a refactoring engine call.
type RefactorResult struct {
	Success      bool         `json:"success"`
	Preview      bool         `json:"preview"`
	Description  string       `json:"description,omitempty"`
	ChangedFiles []string     `json:"changedFiles,omitempty"`
	Changes      []FileChange `json:"changes,omitempty"`
	Error        string       `json:"error,omitempty"`
	ErrorType    string       `json:"errorType,omitempty"`
}

// Refactorer performs compiler-level refactorings.
type Refactorer interface {
	Refactor(ctx context.Context, req RefactorRequest) (*RefactorResult, error)
}

// Navigator resolves references and definitions at a byte offset, for
// languages served by a language-server style backend. An empty lang is
// derived from the file extension.
type Navigator interface {
	FindReferencesAt(ctx context.Context, lang, projectPath, filePath string, offset int) ([]Reference, error)
	FindDefinitionAt(ctx context.Context, lang, projectPath, filePath string, offset int) ([]Location, error)
}

// FixFile is a source file handed to the fixer.
type FixFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FixRequest asks the fixer to repair build errors.
type FixRequest struct {
	Ecosystem   string    `json:"ecosystem"`
	BuildOutput string    `json:"buildOutput"`
	Errors      []string  `json:"errors"`
	Files       []FixFile `json:"files"`
}

// Fixer proposes fixes for build errors. The response is free text that
// contains fenced code blocks.
type Fixer interface {
	Fix(ctx context.Context, req FixRequest) (string, error)
}

// Issue is a ticket fetched from an issue tracker.
type Issue struct {
	Ref    string   `json:"ref"`
	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	URL    string   `json:"url,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// IssueTracker fetches issues by reference (e.g. "owner/repo#12").
type IssueTracker interface {
	GetIssue(ctx context.Context, ref string) (*Issue, error)
}
