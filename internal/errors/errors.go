package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidArgument indicates a missing or invalid required field
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// InvalidOperation indicates an unknown operation tag for a meta-tool
	InvalidOperation ErrorCode = "INVALID_OPERATION"
	// NotFound indicates a symbol, file, workflow or pattern is absent
	NotFound ErrorCode = "NOT_FOUND"
	// Timeout indicates an external process exceeded its time bound
	Timeout ErrorCode = "TIMEOUT"
	// ToolExecution indicates a handler failed while executing
	ToolExecution ErrorCode = "TOOL_EXECUTION"
	// BackendUnavailable indicates a collaborator is not configured or reachable
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// PreconditionFailed indicates the request cannot run in the current state
	PreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// FieldError describes one offending argument field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// AuraError represents an error with code, message, and suggestions
type AuraError struct {
	Code           ErrorCode    `json:"code"`
	Message        string       `json:"message"`
	Details        interface{}  `json:"details,omitempty"`
	Fields         []FieldError `json:"fields,omitempty"`
	SuggestedFixes []FixAction  `json:"suggestedFixes,omitempty"`
	cause          error        // Underlying error (not exported to JSON)
}

// NewAuraError creates a new AuraError
func NewAuraError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *AuraError {
	return &AuraError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *AuraError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AuraError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AuraError) WithDetails(details interface{}) *AuraError {
	e.Details = details
	return e
}

// NewInvalidArgumentError reports a single bad field.
func NewInvalidArgumentError(field, reason string) *AuraError {
	msg := fmt.Sprintf("invalid argument %q", field)
	if reason != "" {
		msg = fmt.Sprintf("invalid argument %q: %s", field, reason)
	}
	return &AuraError{
		Code:    InvalidArgument,
		Message: msg,
		Fields:  []FieldError{{Field: field, Reason: reason}},
	}
}

// NewFieldsError aggregates every offending field into one error.
// Fields are sorted so the message is stable.
func NewFieldsError(fields []FieldError) *AuraError {
	sorted := make([]FieldError, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Field < sorted[j].Field })

	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Reason))
	}
	return &AuraError{
		Code:    InvalidArgument,
		Message: "invalid arguments: " + strings.Join(parts, ", "),
		Fields:  sorted,
	}
}

// NewUnknownOperationError reports an operation tag outside the closed set of a tool.
func NewUnknownOperationError(tool, operation string, valid []string) *AuraError {
	return &AuraError{
		Code:    InvalidOperation,
		Message: fmt.Sprintf("Unknown operation: %s", operation),
		Fields:  []FieldError{{Field: "operation", Reason: fmt.Sprintf("%q is not one of %s", operation, strings.Join(valid, ", "))}},
		Details: map[string]interface{}{
			"tool":            tool,
			"operation":       operation,
			"validOperations": valid,
		},
	}
}

// NewNotFoundError reports an absent resource.
func NewNotFoundError(resource, name string) *AuraError {
	return &AuraError{
		Code:    NotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, name),
	}
}

// NewTimeoutError reports a process that was killed after exceeding its bound.
func NewTimeoutError(what string, limitMs int64, cause error) *AuraError {
	return &AuraError{
		Code:    Timeout,
		Message: fmt.Sprintf("%s timed out after %dms", what, limitMs),
		Details: map[string]interface{}{"timeoutMs": limitMs},
		cause:   cause,
	}
}

// NewOperationError wraps a failure while performing an operation.
func NewOperationError(operation string, cause error) *AuraError {
	return &AuraError{
		Code:    ToolExecution,
		Message: fmt.Sprintf("%s failed", operation),
		cause:   cause,
	}
}

// NewBackendUnavailableError reports an unconfigured collaborator.
func NewBackendUnavailableError(backend, hint string) *AuraError {
	e := &AuraError{
		Code:    BackendUnavailable,
		Message: fmt.Sprintf("%s is not configured", backend),
	}
	if hint != "" {
		e.SuggestedFixes = []FixAction{{Type: OpenDocs, Description: hint}}
	}
	return e
}

// NewPreconditionError reports a request that cannot run in the current state.
func NewPreconditionError(message, hint string) *AuraError {
	e := &AuraError{
		Code:    PreconditionFailed,
		Message: message,
	}
	if hint != "" {
		e.SuggestedFixes = []FixAction{{Type: RunCommand, Description: hint, Safe: true}}
	}
	return e
}

// CodeOf returns the code of the first AuraError in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ae *AuraError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "aura buildfix --timeout <seconds>",
			Safe:        true,
			Description: "Retry with a larger process timeout",
		},
	},
	BackendUnavailable: {
		{
			Type:        OpenDocs,
			Description: "Configure the backend in .aura/config.json",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
