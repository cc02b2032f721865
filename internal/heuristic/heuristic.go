package heuristic

import (
	"bytes"
	"strings"

	"github.com/phobologic/srcgraph/internal/model"
)

// Facts are the approximate structural facts of one file. Slices are never nil.
type Facts struct {
	Functions []model.FunctionFact
	Classes   []model.ClassFact
	Imports   []string
	Exports   []string
	Hooks     []string
}

// Analyze applies every pattern list to source. Hook detection runs only
// when components is true. It never fails: no match yields empty lists.
func Analyze(source []byte, components bool) *Facts {
	lines := newLineIndex(source)
	facts := &Facts{
		Functions: extractFunctions(source, lines),
		Classes:   extractClasses(source, lines),
		Imports:   extractImports(source),
		Exports:   extractExports(source),
		Hooks:     []string{},
	}
	if components {
		facts.Hooks = extractHooks(source)
	}
	return facts
}

func extractFunctions(src []byte, lines lineIndex) []model.FunctionFact {
	functions := []model.FunctionFact{}
	for _, p := range FunctionPatterns {
		for _, m := range p.Re.FindAllSubmatchIndex(src, -1) {
			if fn, ok := functionFromMatch(p, m, src, lines, 0); ok {
				functions = append(functions, fn)
			}
		}
	}
	return functions
}

// functionFromMatch builds a FunctionFact from a match; offset shifts
// positions found inside a sub-slice of the file.
func functionFromMatch(p Pattern, m []int, src []byte, lines lineIndex, offset int) (model.FunctionFact, bool) {
	name := group(p, m, src, "name")
	if _, reserved := keywords[name]; reserved || name == "" {
		return model.FunctionFact{}, false
	}
	args := group(p, m, src, "args")
	if single := group(p, m, src, "arg"); single != "" {
		args = single
	}
	return model.FunctionFact{
		Name:       name,
		Params:     splitParams(args),
		Complexity: 1,
		Async:      group(p, m, src, "async") != "",
		Line:       lines.lineOf(offset + m[0]),
	}, true
}

func extractClasses(src []byte, lines lineIndex) []model.ClassFact {
	classes := []model.ClassFact{}
	p := ClassPattern
	for _, m := range p.Re.FindAllSubmatchIndex(src, -1) {
		cls := model.ClassFact{
			Name:    group(p, m, src, "name"),
			Extends: group(p, m, src, "extends"),
			Methods: []model.FunctionFact{},
			Line:    lines.lineOf(m[0]),
		}

		bodyIdx := p.Re.SubexpIndex("body")
		start, end := m[2*bodyIdx], m[2*bodyIdx+1]
		if start >= 0 {
			body := src[start:end]
			for _, mm := range MethodPattern.Re.FindAllSubmatchIndex(body, -1) {
				if fn, ok := functionFromMatch(MethodPattern, mm, body, lines, start); ok {
					fn.Scope = cls.Name
					cls.Methods = append(cls.Methods, fn)
				}
			}
		}
		classes = append(classes, cls)
	}
	return classes
}

func extractImports(src []byte) []string {
	imports := []string{}
	for _, p := range ImportPatterns {
		for _, m := range p.Re.FindAllSubmatchIndex(src, -1) {
			if s := strings.TrimSpace(group(p, m, src, "source")); s != "" {
				imports = append(imports, s)
			}
		}
	}
	return imports
}

func extractExports(src []byte) []string {
	exports := []string{}
	for _, p := range ExportPatterns {
		for _, m := range p.Re.FindAllSubmatchIndex(src, -1) {
			if list := group(p, m, src, "list"); list != "" {
				exports = append(exports, exportList(list)...)
				continue
			}
			if name := group(p, m, src, "name"); name != "" && !isHeritageKeyword(name) {
				exports = append(exports, name)
			}
		}
	}
	return exports
}

// isHeritageKeyword reports whether name is the clause keyword of an
// anonymous class (export default class extends Base {}).
func isHeritageKeyword(name string) bool {
	return name == "extends" || name == "implements"
}

// exportList splits "a, b as c, type D" into the exported names a, c, D.
func exportList(list string) []string {
	var names []string
	for _, item := range strings.Split(list, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "type" && len(fields) > 1 {
			fields = fields[1:]
		}
		names = append(names, fields[len(fields)-1])
	}
	return names
}

func extractHooks(src []byte) []string {
	hooks := []string{}
	for _, m := range HookPattern.Re.FindAllSubmatchIndex(src, -1) {
		hooks = append(hooks, group(HookPattern, m, src, "name"))
	}
	return hooks
}

// splitParams splits a raw parameter list on top-level commas and classifies
// each entry. Type annotations are dropped from simple names.
func splitParams(args string) []model.Param {
	params := []model.Param{}
	for _, raw := range splitTopLevel(args, ',') {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		kind := model.Positional
		if strings.HasPrefix(raw, "...") {
			kind = model.Variadic
			raw = strings.TrimSpace(raw[3:])
		}
		if parts := splitTopLevel(raw, '='); len(parts) > 1 {
			kind = model.Default
			raw = parts[0]
		}
		if parts := splitTopLevel(raw, ':'); len(parts) > 1 {
			raw = parts[0]
		}

		raw = strings.TrimSuffix(strings.TrimSpace(raw), "?")
		for _, mod := range []string{"public ", "private ", "protected ", "readonly "} {
			raw = strings.TrimPrefix(raw, mod)
		}
		params = append(params, model.Param{Name: strings.Join(strings.Fields(raw), " "), Kind: kind})
	}
	return params
}

// splitTopLevel splits s on sep where sep is not nested in (), [], {} or <>.
// An '=' that is part of '=>' is not a separator.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if c == '>' && i > 0 && s[i-1] == '=' {
				continue
			}
			depth--
		case sep:
			if depth != 0 || (sep == '=' && i+1 < len(s) && s[i+1] == '>') {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i := 0; ; {
		j := bytes.IndexByte(src[i:], '\n')
		if j < 0 {
			return idx
		}
		i += j + 1
		idx = append(idx, i)
	}
}

func (li lineIndex) lineOf(offset int) int {
	lo, hi := 0, len(li)
	for lo < hi {
		mid := (lo + hi) / 2
		if li[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
