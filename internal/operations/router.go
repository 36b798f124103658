// Package operations routes meta-tool calls. Each meta-tool owns a closed
// set of operation tags; a tag may have a default implementation plus
// implementations for specific target languages.
package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/language"
	"aura/internal/slogutil"
)

// Call is one routed invocation.
type Call struct {
	Tool      string
	Operation string
	Language  language.Tag
	Args      map[string]interface{}
}

// Handler executes one operation.
type Handler func(ctx context.Context, call Call) (*envelope.Response, error)

// Typed adapts a handler that takes decoded arguments. Decoding and
// validation happen before fn runs, so companion fields required by a
// particular backend are reported by name.
func Typed[T any](fn func(ctx context.Context, call Call, args *T) (*envelope.Response, error)) Handler {
	return func(ctx context.Context, call Call) (*envelope.Response, error) {
		args, err := Decode[T](call.Args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, call, args)
	}
}

type route struct {
	native    Handler
	languages map[language.Tag]Handler
}

// Router is the routing table of one meta-tool.
type Router struct {
	tool   string
	routes map[string]*route
	logger *slog.Logger
}

// NewRouter creates an empty routing table for tool.
func NewRouter(tool string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Router{tool: tool, routes: make(map[string]*route), logger: logger}
}

// Tool returns the meta-tool name.
func (r *Router) Tool() string { return r.tool }

func (r *Router) entry(op string) *route {
	rt, ok := r.routes[op]
	if !ok {
		rt = &route{languages: make(map[language.Tag]Handler)}
		r.routes[op] = rt
	}
	return rt
}

// Handle registers the default implementation of op.
func (r *Router) Handle(op string, h Handler) *Router {
	r.entry(op).native = h
	return r
}

// HandleLanguage registers an implementation of op for the given languages.
func (r *Router) HandleLanguage(op string, h Handler, tags ...language.Tag) *Router {
	rt := r.entry(op)
	for _, tag := range tags {
		rt.languages[tag] = h
	}
	return r
}

// Operations lists the operation tags in sorted order.
func (r *Router) Operations() []string {
	ops := make([]string, 0, len(r.routes))
	for op := range r.routes {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Languages lists the languages with a dedicated implementation of op.
func (r *Router) Languages(op string) []string {
	rt, ok := r.routes[op]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rt.languages))
	for tag := range rt.languages {
		out = append(out, string(tag))
	}
	sort.Strings(out)
	return out
}

type routingArgs struct {
	Operation    string `json:"operation" validate:"required"`
	Language     string `json:"language"`
	FilePath     string `json:"filePath"`
	ProjectPath  string `json:"projectPath"`
	SolutionPath string `json:"solutionPath"`
}

// Select resolves the handler for args without running it.
func (r *Router) Select(args map[string]interface{}) (Handler, Call, error) {
	ra, err := Decode[routingArgs](args)
	if err != nil {
		return nil, Call{}, err
	}
	call := Call{Tool: r.tool, Operation: ra.Operation, Args: args}

	rt, ok := r.routes[ra.Operation]
	if !ok {
		return nil, call, auraerrors.NewUnknownOperationError(r.tool, ra.Operation, r.Operations())
	}

	tag, err := language.Detect(language.Hints{
		Language:     ra.Language,
		FilePath:     ra.FilePath,
		ProjectPath:  ra.ProjectPath,
		SolutionPath: ra.SolutionPath,
	})
	if err != nil {
		return nil, call, err
	}
	call.Language = tag

	if h, ok := rt.languages[tag]; ok {
		return h, call, nil
	}
	if rt.native != nil {
		return rt.native, call, nil
	}
	return nil, call, auraerrors.NewUnknownOperationError(r.tool, ra.Operation, r.Operations()).
		WithDetails(map[string]interface{}{
			"tool":      r.tool,
			"operation": ra.Operation,
			"language":  string(tag),
			"languages": r.Languages(ra.Operation),
		})
}

// Dispatch routes args to the selected handler.
func (r *Router) Dispatch(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	h, call, err := r.Select(args)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Routing operation",
		"tool", r.tool,
		"operation", call.Operation,
		"language", string(call.Language),
	)
	resp, err := h(ctx, call)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%s.%s returned no result", r.tool, call.Operation)
	}
	return resp, nil
}

// Catalog maps each meta-tool to its operation set.
type Catalog []*Router

// ListAll returns tool -> sorted operations.
func (c Catalog) ListAll() map[string][]string {
	out := make(map[string][]string, len(c))
	for _, r := range c {
		out[r.tool] = r.Operations()
	}
	return out
}
