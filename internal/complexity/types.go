// Package complexity provides language-agnostic file metrics via tree-sitter.
package complexity

import (
	"errors"
	"math"
)

// ErrNoCGO is returned when complexity analysis is unavailable due to missing CGO.
var ErrNoCGO = errors.New("complexity analysis requires CGO (tree-sitter)")

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRuby       Language = "ruby"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// ABC holds assignment, branch and condition counts.
type ABC struct {
	Assignments int `json:"assignments"`
	Branches    int `json:"branches"`
	Conditions  int `json:"conditions"`
}

// Size is the vector magnitude sqrt(A² + B² + C²).
func (a ABC) Size() float64 {
	return math.Sqrt(float64(a.Assignments*a.Assignments + a.Branches*a.Branches + a.Conditions*a.Conditions))
}

// FileMetrics contains the metrics of one source file.
type FileMetrics struct {
	// Path is the file path
	Path string `json:"path"`

	// Language is the detected language
	Language Language `json:"language"`

	// Cyclomatic is 1 plus one per branching construct anywhere in the file
	Cyclomatic int `json:"cyclomatic"`

	ABC ABC `json:"abc"`

	// LinesOfCode counts lines holding at least one non-comment token
	LinesOfCode int `json:"linesOfCode"`
}

// LanguageFromExtension returns the Language for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".jsx":
		return LangJavaScript, true // JSX uses JS parser
	case ".py", ".pyw":
		return LangPython, true
	case ".rb", ".rake", ".ru", ".gemspec":
		return LangRuby, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}
