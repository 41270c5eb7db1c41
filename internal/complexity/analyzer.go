//go:build cgo

package complexity

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Analyzer computes metrics for source files.
type Analyzer struct {
	parser *Parser
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		parser: NewParser(),
	}
}

// AnalyzeFile analyzes a source file. Files in unsupported languages yield
// (nil, nil).
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileMetrics, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := LanguageFromExtension(ext)
	if !ok {
		return nil, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return a.AnalyzeSource(ctx, path, source, lang)
}

// AnalyzeSource analyzes source code in the given language.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang Language) (*FileMetrics, error) {
	root, err := a.parser.Parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}

	return &FileMetrics{
		Path:        path,
		Language:    lang,
		Cyclomatic:  computeCyclomaticComplexity(root, source, lang),
		ABC:         computeABC(root, source, lang),
		LinesOfCode: countLinesOfCode(root, source),
	}, nil
}

// computeCyclomaticComplexity starts at 1 and adds one per decision point
// anywhere below node.
func computeCyclomaticComplexity(node *sitter.Node, source []byte, lang Language) int {
	return 1 + countDecisions(node, source, lang)
}

func countDecisions(node *sitter.Node, source []byte, lang Language) int {
	count := 0
	for _, dn := range findNodes(node, GetDecisionNodeTypes(lang)) {
		// For binary expressions, only count && and ||
		switch dn.Type() {
		case "binary_expression", "boolean_operator", "binary":
			if IsBooleanOperator(dn, source, lang) {
				count++
			}
		default:
			count++
		}
	}
	return count
}

func computeABC(root *sitter.Node, source []byte, lang Language) ABC {
	return ABC{
		Assignments: len(findNodes(root, GetAssignmentNodeTypes(lang))),
		Branches:    len(findNodes(root, GetBranchNodeTypes(lang))),
		Conditions:  countDecisions(root, source, lang),
	}
}

// countLinesOfCode counts the lines covered by at least one non-comment,
// non-whitespace leaf token.
func countLinesOfCode(root *sitter.Node, source []byte) int {
	lines := make(map[uint32]bool)

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || strings.Contains(node.Type(), "comment") {
			return
		}
		if node.ChildCount() == 0 {
			if strings.TrimSpace(string(source[node.StartByte():node.EndByte()])) == "" {
				return
			}
			start, end := node.StartPoint(), node.EndPoint()
			last := end.Row
			if end.Column == 0 && end.Row > start.Row {
				last--
			}
			for row := start.Row; row <= last; row++ {
				lines[row] = true
			}
			return
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}

	walk(root)
	return len(lines)
}

// findNodes finds all named nodes of the given types in the AST. Anonymous
// keyword tokens share their construct's type name in some grammars (ruby's
// `if` node holds an `if` token) and are skipped.
func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	var result []*sitter.Node

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		if node.IsNamed() && contains(types, node.Type()) {
			result = append(result, node)
		}

		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}

	walk(root)
	return result
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// IsAvailable returns whether complexity analysis is available.
// Returns true when CGO is enabled.
func IsAvailable() bool {
	return true
}
