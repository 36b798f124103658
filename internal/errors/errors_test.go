package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAuraError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      BackendUnavailable,
			message:   "fixer not running",
			cause:     errors.New("connection refused"),
			wantParts: []string{"BACKEND_UNAVAILABLE", "fixer not running", "connection refused"},
		},
		{
			name:      "without cause",
			code:      NotFound,
			message:   "symbol 'foo' not found",
			wantParts: []string{"NOT_FOUND", "symbol 'foo' not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAuraError(tt.code, tt.message, tt.cause, nil).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestAuraError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewOperationError("build", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if NewNotFoundError("pattern", "x").Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestNewFieldsError_SortsAndAggregates(t *testing.T) {
	err := NewFieldsError([]FieldError{
		{Field: "solutionPath", Reason: "required"},
		{Field: "newName", Reason: "required"},
	})

	if err.Code != InvalidArgument {
		t.Errorf("Code = %v, want %v", err.Code, InvalidArgument)
	}
	if len(err.Fields) != 2 || err.Fields[0].Field != "newName" {
		t.Errorf("Fields = %+v, want newName first", err.Fields)
	}
	if !strings.Contains(err.Message, "newName (required), solutionPath (required)") {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewUnknownOperationError(t *testing.T) {
	err := NewUnknownOperationError("refactor", "explode", []string{"rename", "safe_delete"})

	if err.Message != "Unknown operation: explode" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != InvalidOperation {
		t.Errorf("Code = %v, want %v", err.Code, InvalidOperation)
	}
	if len(err.Fields) != 1 || err.Fields[0].Field != "operation" {
		t.Errorf("Fields = %+v", err.Fields)
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewTimeoutError("dotnet build", 1000, nil))

	if got := CodeOf(wrapped); got != Timeout {
		t.Errorf("CodeOf() = %v, want %v", got, Timeout)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %v, want empty", got)
	}
	if !Is(wrapped, Timeout) {
		t.Errorf("Is(wrapped, Timeout) = false")
	}
	if Is(nil, Timeout) {
		t.Errorf("Is(nil, Timeout) = true")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(Timeout); len(fixes) == 0 {
		t.Error("expected suggested fixes for TIMEOUT")
	}
	if fixes := GetSuggestedFixes(InternalError); fixes != nil {
		t.Errorf("GetSuggestedFixes(INTERNAL_ERROR) = %v, want nil", fixes)
	}
}
