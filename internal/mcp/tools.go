package mcp

import (
	"context"

	"aura/internal/envelope"
	"aura/internal/language"
	"aura/internal/operations"
)

// Tool represents a tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler handles one tool call and returns an envelope response.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (*envelope.Response, error)

type toolSpec struct {
	description string
	properties  map[string]interface{}
	required    []string
}

// metaTools lists the meta-tools in catalog order. The operation enum of
// each schema is filled in from its router.
var metaTools = []struct {
	name string
	spec toolSpec
}{
	{"search", toolSpec{
		description: "Search the codebase. semantic: natural-language query against the semantic index (falls back to text search). text: regular expression over source files. symbols: declarations by name.",
		properties: map[string]interface{}{
			"query":           str("Search text, regular expression or symbol name"),
			"path":            str("Restrict to a file or directory (relative to the repository root)"),
			"language":        languageProp(),
			"kind":            str("symbols: restrict to a declaration kind (class, method, property, ...)"),
			"exact":           boolean("symbols: match the name exactly"),
			"caseInsensitive": boolean("text: ignore case"),
			"limit":           integer("Maximum number of results"),
		},
		required: []string{"query"},
	}},
	{"navigate", toolSpec{
		description: "Follow code relationships: callers, implementations, derived_types, references, definition. Python and TypeScript references/definition resolve a position (projectPath, filePath, offset).",
		properties: map[string]interface{}{
			"symbolName":  str("Symbol or type name"),
			"path":        str("Restrict the symbol lookup to a file or directory"),
			"language":    languageProp(),
			"projectPath": str("Project root (position-based navigation)"),
			"filePath":    str("Source file (position-based navigation)"),
			"offset":      integer("Character offset in filePath"),
		},
	}},
	{"inspect", toolSpec{
		description: "Inspect structure: type_members lists a type's members, file_symbols lists a file's declarations, find_type locates a type.",
		properties: map[string]interface{}{
			"typeName": str("Type name (type_members, find_type)"),
			"filePath": str("Source file (file_symbols)"),
			"language": languageProp(),
		},
	}},
	{"refactor", toolSpec{
		description: "Refactor code. Every operation previews by default; pass execute=true to write. rename returns a blast radius (related symbols, ordered plan, file fingerprints) before executing.",
		properties: map[string]interface{}{
			"symbolName":    str("Symbol to refactor"),
			"newName":       str("New name (rename, extract_method, extract_variable)"),
			"solutionPath":  str("Solution or project file of the native backend"),
			"projectPath":   str("Project root (Python, TypeScript)"),
			"filePath":      str("Source file"),
			"language":      languageProp(),
			"kind":          str("Declaration kind, to disambiguate"),
			"path":          str("Restrict the declaration lookup to a file or directory"),
			"offset":        integer("Character offset of the symbol (Python, TypeScript rename)"),
			"start":         integer("Selection start offset (extract_method, extract_variable)"),
			"end":           integer("Selection end offset (extract_method, extract_variable)"),
			"interfaceName": str("extract_interface: interface name, default I<Type>"),
			"parameters":    array("change_signature: the new parameter list", map[string]interface{}{"type": "object"}),
			"fingerprints":  map[string]interface{}{"type": "object", "description": "rename: file fingerprints from the analysis, to detect drift"},
			"execute":       boolean("Apply the change instead of previewing it"),
		},
	}},
	{"generate", toolSpec{
		description: "Generate code from language templates. type: a new class/interface/record/struct file. tests: a test scaffold for an existing type. Preview unless execute=true.",
		properties: map[string]interface{}{
			"name":      str("Type name"),
			"kind":      map[string]interface{}{"type": "string", "enum": []string{"class", "interface", "record", "struct"}},
			"language":  languageProp(),
			"namespace": str("Namespace or package"),
			"module":    str("Module to import the type from (tests)"),
			"directory": str("Output directory relative to the repository root"),
			"members":   array("Members: {name, kind: property|method, type}", map[string]interface{}{"type": "object"}),
			"execute":   boolean("Write the file"),
		},
	}},
	{"validate", toolSpec{
		description: "Build and test. compilation runs one build and returns parsed errors. tests runs the test command. build_fix runs the iterative build-fix loop.",
		properties: map[string]interface{}{
			"path":          str("Project directory, default the repository root"),
			"ecosystem":     map[string]interface{}{"type": "string", "enum": []string{"dotnet", "cargo", "go", "npm"}},
			"maxIterations": integer("build_fix: iteration bound"),
		},
	}},
	{"workflow", toolSpec{
		description: "Track multi-step work. create, get, list, add_step, update_step, from_issue (derive steps from an issue's task list).",
		properties: map[string]interface{}{
			"workflowId":  str("Workflow id"),
			"stepId":      str("Step id"),
			"title":       str("Workflow or step title"),
			"description": str("Workflow or step description"),
			"steps":       array("create: step titles", map[string]interface{}{"type": "string"}),
			"status":      map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed", "failed", "skipped"}},
			"result":      str("update_step: outcome notes"),
			"issueRef":    str("from_issue: issue reference, e.g. owner/repo#12"),
			"limit":       integer("list: maximum workflows"),
		},
	}},
	{"pattern", toolSpec{
		description: "Reusable code patterns. list filters by language and tag; get returns one pattern by name.",
		properties: map[string]interface{}{
			"name":     str("Pattern name"),
			"language": languageProp(),
			"tag":      str("Filter by tag"),
		},
	}},
}

var simpleTools = []struct {
	name string
	spec toolSpec
}{
	{"worktree_info", toolSpec{
		description: "Report whether a path is inside a linked git worktree and which main repository owns its index.",
		properties: map[string]interface{}{
			"path": str("Path to inspect, default the repository root"),
		},
	}},
	{"list_operations", toolSpec{
		description: "List each meta-tool's operations and the languages with dedicated implementations.",
		properties:  map[string]interface{}{},
	}},
}

// RegisterTools builds the routers and fills the tool table.
func (s *MCPServer) RegisterTools() {
	s.catalog = operations.Catalog{
		s.searchRouter(),
		s.navigateRouter(),
		s.inspectRouter(),
		s.refactorRouter(),
		s.generateRouter(),
		s.validateRouter(),
		s.workflowRouter(),
		s.patternRouter(),
	}
	for _, r := range s.catalog {
		s.routers[r.Tool()] = r
		s.tools[r.Tool()] = r.Dispatch
	}
	s.tools["worktree_info"] = s.toolWorktreeInfo
	s.tools["list_operations"] = s.toolListOperations
}

// GetToolDefinitions returns every tool definition in catalog order.
func (s *MCPServer) GetToolDefinitions() []Tool {
	tools := make([]Tool, 0, len(metaTools)+len(simpleTools))
	for _, mt := range metaTools {
		props := map[string]interface{}{
			"operation": map[string]interface{}{
				"type":        "string",
				"enum":        s.routers[mt.name].Operations(),
				"description": "Operation to run",
			},
		}
		for k, v := range mt.spec.properties {
			props[k] = v
		}
		tools = append(tools, Tool{
			Name:        mt.name,
			Description: mt.spec.description,
			InputSchema: objectSchema(props, append([]string{"operation"}, mt.spec.required...)),
		})
	}
	for _, st := range simpleTools {
		tools = append(tools, Tool{
			Name:        st.name,
			Description: st.spec.description,
			InputSchema: objectSchema(st.spec.properties, st.spec.required),
		})
	}
	return tools
}

func objectSchema(props map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func integer(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func boolean(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": desc}
}

func array(desc string, items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "description": desc, "items": items}
}

func languageProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        language.Names(),
		"description": "Target language; inferred from filePath/projectPath when omitted",
	}
}
