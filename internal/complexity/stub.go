//go:build !cgo

package complexity

import "context"

// Analyzer computes metrics for source files.
// This is a stub implementation for non-CGO builds.
type Analyzer struct{}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeFile analyzes a single file.
// Stub implementation returns an error.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileMetrics, error) {
	return nil, ErrNoCGO
}

// AnalyzeSource analyzes source code bytes.
// Stub implementation returns an error.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang Language) (*FileMetrics, error) {
	return nil, ErrNoCGO
}

// IsAvailable returns whether complexity analysis is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
