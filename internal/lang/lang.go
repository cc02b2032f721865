// Package lang provides a language registry mapping file extensions to
// language families and, for grammar-backed languages, tree-sitter grammars.
package lang

import (
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Family is the extraction strategy used for a language. The set is closed:
// adding a language means registering it under one of these families.
type Family string

const (
	// SyntaxTree languages are parsed with a tree-sitter grammar.
	SyntaxTree Family = "syntax-tree"
	// Pattern languages are scanned with an ordered list of regular expressions.
	Pattern Family = "pattern"
)

// Language holds configuration for a supported language.
type Language struct {
	Name       string
	Family     Family
	Extensions []string

	// ComponentExtensions lists extensions whose files follow a component
	// framework convention (hook-style calls are detected only there).
	ComponentExtensions []string

	// DecisionTypes are the node types that count as decision points for
	// cyclomatic complexity. Only set for SyntaxTree languages.
	DecisionTypes map[string]struct{}

	lang *sitter.Language
}

// GetLanguage returns the tree-sitter Language pointer, nil for Pattern languages.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// IsComponentExtension reports whether ext follows the component convention.
func (l *Language) IsComponentExtension(ext string) bool {
	for _, e := range l.ComponentExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]*Language
var extensionOnce sync.Once

func getExtensionMap() map[string]*Language {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]*Language)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language for a file extension, or nil if unsupported.
// Matching is case-insensitive.
func ForExtension(ext string) *Language {
	return getExtensionMap()[strings.ToLower(ext)]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func typeSet(types ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return m
}
