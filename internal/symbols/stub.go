//go:build !cgo

package symbols

import (
	"context"

	"aura/internal/language"
)

// Extractor is a no-op when CGO is not available.
type Extractor struct{}

// NewExtractor creates a new symbol extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractSource returns no symbols when CGO is not available.
func (e *Extractor) ExtractSource(ctx context.Context, path string, source []byte, lang language.Tag) ([]Symbol, error) {
	return nil, nil
}

// Parse returns an empty result when CGO is not available.
func (e *Extractor) Parse(ctx context.Context, path string, source []byte, lang language.Tag) (Parsed, error) {
	return Parsed{}, nil
}

// IsAvailable returns whether symbol extraction is available.
func IsAvailable() bool {
	return false
}
