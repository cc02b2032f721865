// Package heuristic extracts approximate structural facts from JavaScript and
// TypeScript source with ordered lists of named regular expressions.
//
// Patterns are applied independently and in order. A function matched by more
// than one pattern is reported once per match; results are never
// deduplicated across patterns.
package heuristic

import "regexp"

// Pattern is a named regular expression. Capture groups are looked up by
// name: name, args, arg, async, extends, body, source, clause, list.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

const ident = `[A-Za-z_$][\w$]*`

// FunctionPatterns recognize function definitions, in application order.
var FunctionPatterns = []Pattern{
	{"declaration", regexp.MustCompile(`(?P<async>async\s+)?function\s*\*?\s*(?P<name>` + ident + `)\s*(?:<[^>()]*>)?\s*\((?P<args>[^)]*)\)`)},
	{"arrow", regexp.MustCompile(`(?:const|let|var)\s+(?P<name>` + ident + `)\s*(?::[^=]+)?=\s*(?P<async>async\s+)?(?:\((?P<args>[^)]*)\)|(?P<arg>` + ident + `))\s*(?::\s*[^=]+?)?=>`)},
	{"method", regexp.MustCompile(`(?P<async>async\s+)?(?P<name>` + ident + `)\s*\((?P<args>[^)]*)\)\s*(?::\s*[^{;()]+)?\{`)},
	{"object-method", regexp.MustCompile(`(?P<name>` + ident + `)\s*:\s*(?P<async>async\s+)?function\s*\*?\s*\((?P<args>[^)]*)\)`)},
}

// ClassPattern matches a class header and its body up to the first closing
// brace. Brace matching is not recursive, so a body containing nested blocks
// is truncated at the first inner '}'.
var ClassPattern = Pattern{"class", regexp.MustCompile(`class\s+(?P<name>` + ident + `)(?:\s*<[^>{]*>)?(?:\s+extends\s+(?P<extends>` + ident + `(?:\.` + ident + `)*)(?:<[^>{]*>)?)?(?:\s+implements\s+[^{]+)?\s*\{(?P<body>[^}]*)\}`)}

// MethodPattern finds methods inside a class body.
var MethodPattern = Pattern{"class-method", regexp.MustCompile(`(?P<async>async\s+)?(?P<name>` + ident + `)\s*\((?P<args>[^)]*)\)\s*(?::\s*[^{;()]+)?\{`)}

// ImportPatterns capture module specifiers, in application order.
var ImportPatterns = []Pattern{
	{"es-import", regexp.MustCompile(`import\s+(?:type\s+)?(?P<clause>[\w$*{}\s,]+?)\s+from\s*['"](?P<source>[^'"]+)['"]`)},
	{"side-effect", regexp.MustCompile(`import\s*['"](?P<source>[^'"]+)['"]`)},
	{"re-export", regexp.MustCompile(`export\s+(?:type\s+)?(?:\*(?:\s+as\s+` + ident + `)?|\{[^}]*\})\s*from\s*['"](?P<source>[^'"]+)['"]`)},
	{"dynamic-import", regexp.MustCompile(`import\(\s*['"](?P<source>[^'"]+)['"]\s*\)`)},
	{"require", regexp.MustCompile(`(?:const|let|var)\s+(?:\{[^}]*\}|` + ident + `)\s*=\s*require\(\s*['"](?P<source>[^'"]+)['"]\s*\)`)},
}

// ExportPatterns capture exported names, in application order.
var ExportPatterns = []Pattern{
	{"named", regexp.MustCompile(`export\s+(?:declare\s+)?(?:async\s+)?(?:const|let|var|function\s*\*?|class|abstract\s+class|interface|type|enum)\s+(?P<name>` + ident + `)`)},
	{"list", regexp.MustCompile(`export\s*\{(?P<list>[^}]*)\}`)},
	{"default", regexp.MustCompile(`export\s+default\s+(?:async\s+)?(?:function\s*\*?|class)?\s*(?P<name>` + ident + `)?`)},
}

// HookPattern detects hook-style calls (useState(...), useEffect(...)).
var HookPattern = Pattern{"hook", regexp.MustCompile(`\b(?P<name>use[A-Z][\w$]*)\s*\(`)}

// keywords can precede '(' ... '{' but never name a function.
var keywords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {}, "function": {},
	"return": {}, "with": {}, "else": {}, "do": {}, "typeof": {}, "new": {},
	"await": {}, "yield": {}, "delete": {}, "void": {}, "in": {}, "of": {},
}

func group(p Pattern, match []int, src []byte, name string) string {
	i := p.Re.SubexpIndex(name)
	if i < 0 || match[2*i] < 0 {
		return ""
	}
	return string(src[match[2*i]:match[2*i+1]])
}
