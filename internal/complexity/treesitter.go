//go:build cgo

package complexity

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps tree-sitter for multi-language parsing.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser.
func NewParser() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// Parse parses source code and returns the AST root node.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*sitter.Node, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return tree.RootNode(), nil
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRuby:
		return ruby.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// GetDecisionNodeTypes returns the node types that contribute to cyclomatic complexity.
func GetDecisionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{
			"if_statement",
			"for_statement",
			"expression_case",    // case in switch
			"type_case",          // case in type switch
			"communication_case", // case in select
			"binary_expression",  // for && and ||
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{
			"if_statement",
			"for_statement",
			"for_in_statement",
			"while_statement",
			"do_statement",
			"switch_case",
			"catch_clause",
			"ternary_expression",
			"binary_expression", // for && and ||
		}
	case LangPython:
		return []string{
			"if_statement",
			"elif_clause",
			"for_statement",
			"while_statement",
			"except_clause",
			"boolean_operator",       // and, or
			"conditional_expression", // ternary
			"case_clause",
		}
	case LangRuby:
		return []string{
			"if",
			"elsif",
			"unless",
			"if_modifier",
			"unless_modifier",
			"case",
			"when",
			"while",
			"while_modifier",
			"until",
			"until_modifier",
			"for",
			"rescue",
			"rescue_modifier",
			"conditional", // ternary
			"binary",      // for and, or, && and ||
		}
	case LangRust:
		return []string{
			"if_expression",
			"match_arm",
			"while_expression",
			"loop_expression",
			"for_expression",
			"binary_expression", // for && and ||
		}
	case LangJava:
		return []string{
			"if_statement",
			"for_statement",
			"enhanced_for_statement",
			"while_statement",
			"do_statement",
			"switch_block_statement_group",
			"catch_clause",
			"ternary_expression",
			"binary_expression", // for && and ||
		}
	case LangKotlin:
		return []string{
			"if_expression",
			"when_entry",
			"for_statement",
			"while_statement",
			"do_while_statement",
			"catch_block",
			"binary_expression", // for && and ||
			"elvis_expression",  // ?:
		}
	default:
		return nil
	}
}

// GetAssignmentNodeTypes returns the node types counted as ABC assignments.
func GetAssignmentNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"assignment_statement", "short_var_declaration", "inc_statement", "dec_statement", "var_spec"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"assignment_expression", "augmented_assignment_expression", "variable_declarator", "update_expression"}
	case LangPython:
		return []string{"assignment", "augmented_assignment"}
	case LangRuby:
		return []string{"assignment", "operator_assignment"}
	case LangRust:
		return []string{"assignment_expression", "compound_assignment_expr", "let_declaration"}
	case LangJava:
		return []string{"assignment_expression", "variable_declarator", "update_expression"}
	case LangKotlin:
		return []string{"assignment", "property_declaration"}
	default:
		return nil
	}
}

// GetBranchNodeTypes returns the node types counted as ABC branches (calls).
func GetBranchNodeTypes(lang Language) []string {
	switch lang {
	case LangGo, LangRust, LangKotlin:
		return []string{"call_expression", "macro_invocation"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"call_expression", "new_expression"}
	case LangPython, LangRuby:
		return []string{"call"}
	case LangJava:
		return []string{"method_invocation", "object_creation_expression"}
	default:
		return nil
	}
}

// IsBooleanOperator checks if a binary expression node is a short-circuit operator.
func IsBooleanOperator(node *sitter.Node, source []byte, lang Language) bool {
	switch node.Type() {
	case "binary_expression", "boolean_operator", "binary":
	default:
		return false
	}

	// Find the operator child
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}

		switch lang {
		case LangGo, LangJavaScript, LangTypeScript, LangTSX, LangRust, LangJava, LangKotlin:
			content := string(source[child.StartByte():child.EndByte()])
			if content == "&&" || content == "||" {
				return true
			}
		case LangPython:
			// Python uses 'and' and 'or' keywords
			if child.Type() == "and" || child.Type() == "or" {
				return true
			}
		case LangRuby:
			switch child.Type() {
			case "and", "or", "&&", "||":
				return true
			}
		}
	}

	return false
}
