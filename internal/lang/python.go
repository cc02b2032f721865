package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		Family:     SyntaxTree,
		Extensions: []string{".py"},
		DecisionTypes: typeSet(
			"if_statement",
			"elif_clause",
			"conditional_expression",
			"for_statement",
			"while_statement",
			"except_clause",
			"with_statement",
			"assert_statement",
			"boolean_operator",
			"for_in_clause",
			"if_clause",
			"case_clause",
		),
		lang: python.GetLanguage(),
	}
}
