//go:build !cgo

package source

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when declaration extraction is unavailable due to missing CGO.
var ErrNoCGO = errors.New("declaration extraction requires CGO (tree-sitter)")

// TreeSitterExtractor is a stub for non-CGO builds.
type TreeSitterExtractor struct{}

// NewTreeSitterExtractor returns an extractor that always fails with ErrNoCGO.
func NewTreeSitterExtractor() Extractor {
	return &TreeSitterExtractor{}
}

// ExtractorAvailable returns false when CGO is disabled.
func ExtractorAvailable() bool {
	return false
}

// Extract always returns ErrNoCGO.
func (e *TreeSitterExtractor) Extract(ctx context.Context, lang Language, src []byte) ([]string, error) {
	return nil, ErrNoCGO
}
