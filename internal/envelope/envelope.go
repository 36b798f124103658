// Package envelope provides the response wrapper for every tool result.
// Each payload carries metadata about which backend answered, how much to
// trust it, whether it was truncated, and any non-fatal warnings.
package envelope

// ConfidenceTier represents the quality tier of results.
type ConfidenceTier string

const (
	// TierHigh indicates index-backed or compiler-backed results.
	TierHigh ConfidenceTier = "high"
	// TierMedium indicates parsed-source results from the structural fallback.
	TierMedium ConfidenceTier = "medium"
	// TierLow indicates text-scan or heuristic results.
	TierLow ConfidenceTier = "low"
)

// Confidence describes result quality.
type Confidence struct {
	Tier    ConfidenceTier `json:"tier"`
	Reasons []string       `json:"reasons,omitempty"`
}

// Provenance describes which backends contributed to the result.
type Provenance struct {
	Backends []string `json:"backends"`
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Total       int    `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Meta holds response metadata.
type Meta struct {
	Confidence *Confidence `json:"confidence,omitempty"`
	Provenance *Provenance `json:"provenance,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Response is the standard envelope for all tool responses.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *string         `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
