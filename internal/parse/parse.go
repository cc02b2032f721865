// Package parse extracts structural facts from grammar-backed source files
// using tree-sitter.
package parse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/metrics"
	"github.com/phobologic/srcgraph/internal/model"
)

// ErrSyntax is returned when the source does not parse cleanly.
var ErrSyntax = errors.New("syntax error")

// Facts are the structural facts of one parsed file.
type Facts struct {
	Description string
	Functions   []model.FunctionFact
	Classes     []model.ClassFact
	Imports     []string
	// Complexity is the cyclomatic complexity of the whole module.
	Complexity int
}

// Analyze parses source with l's grammar and walks every node of the tree.
// A tree containing errors yields ErrSyntax and no facts: partial functions
// or classes are never returned.
func Analyze(ctx context.Context, l *lang.Language, source []byte) (*Facts, error) {
	parser := l.NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty tree", ErrSyntax)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%w near line %d", ErrSyntax, firstErrorLine(root))
	}

	w := &walker{
		source:    source,
		decisions: l.DecisionTypes,
		facts: &Facts{
			Functions: []model.FunctionFact{},
			Classes:   []model.ClassFact{},
			Imports:   []string{},
		},
	}
	w.facts.Description = w.leadingDocstring(root)
	w.walk(root, "")
	w.facts.Complexity = metrics.Cyclomatic(root, l.DecisionTypes)
	return w.facts, nil
}

type walker struct {
	source    []byte
	decisions map[string]struct{}
	facts     *Facts
}

func (w *walker) walk(node *sitter.Node, scope string) {
	switch node.Type() {
	case "function_definition":
		fn := w.function(node, scope)
		w.facts.Functions = append(w.facts.Functions, fn)
		scope = fn.QualifiedName()
	case "class_definition":
		cls := w.class(node, scope)
		w.facts.Classes = append(w.facts.Classes, cls)
		scope = cls.QualifiedName()
	case "import_statement":
		w.importStatement(node)
		return
	case "import_from_statement":
		w.importFromStatement(node)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			w.walk(child, scope)
		}
	}
}

func (w *walker) function(node *sitter.Node, scope string) model.FunctionFact {
	fn := model.FunctionFact{
		Scope:      scope,
		Params:     []model.Param{},
		Complexity: metrics.Cyclomatic(node, w.decisions),
		Line:       int(node.StartPoint().Row) + 1,
	}
	if name := node.ChildByFieldName("name"); name != nil {
		fn.Name = w.text(name)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == "async" {
			fn.Async = true
			break
		}
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Params = w.parameters(params)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Docstring = w.leadingDocstring(body)
	}
	return fn
}

// parameters classifies each parameter. Separators (*, /) carry no name and
// are skipped.
func (w *walker) parameters(node *sitter.Node) []model.Param {
	params := []model.Param{}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			params = append(params, model.Param{Name: w.text(child), Kind: model.Positional})
		case "typed_parameter":
			if inner := child.NamedChild(0); inner != nil {
				if p, ok := w.simpleParam(inner); ok {
					params = append(params, p)
				}
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				params = append(params, model.Param{Name: w.text(name), Kind: model.Default})
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			if p, ok := w.simpleParam(child); ok {
				params = append(params, p)
			}
		}
	}
	return params
}

func (w *walker) simpleParam(node *sitter.Node) (model.Param, bool) {
	switch node.Type() {
	case "identifier":
		return model.Param{Name: w.text(node), Kind: model.Positional}, true
	case "list_splat_pattern":
		if id := node.NamedChild(0); id != nil {
			return model.Param{Name: w.text(id), Kind: model.Variadic}, true
		}
	case "dictionary_splat_pattern":
		if id := node.NamedChild(0); id != nil {
			return model.Param{Name: w.text(id), Kind: model.Keyword}, true
		}
	}
	return model.Param{}, false
}

func (w *walker) class(node *sitter.Node, scope string) model.ClassFact {
	cls := model.ClassFact{
		Scope:   scope,
		Methods: []model.FunctionFact{},
		Line:    int(node.StartPoint().Row) + 1,
	}
	if name := node.ChildByFieldName("name"); name != nil {
		cls.Name = w.text(name)
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		cls.Extends = w.firstBase(supers)
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	cls.Docstring = w.leadingDocstring(body)

	methodScope := cls.QualifiedName()
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		// Decorated: decorated_definition -> function_definition
		if child.Type() == "decorated_definition" {
			child = child.ChildByFieldName("definition")
		}
		if child != nil && child.Type() == "function_definition" {
			cls.Methods = append(cls.Methods, w.function(child, methodScope))
		}
	}
	return cls
}

// firstBase returns the first positional base class, skipping keyword
// arguments such as metaclass=.
func (w *walker) firstBase(argList *sitter.Node) string {
	for i := 0; i < int(argList.NamedChildCount()); i++ {
		child := argList.NamedChild(i)
		switch child.Type() {
		case "keyword_argument", "comment":
			continue
		}
		return lang.CollapseWhitespace(w.text(child))
	}
	return ""
}

// importStatement handles 'import a.b' and 'import a.b as c'.
func (w *walker) importStatement(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			w.addImport(w.text(child))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				w.addImport(w.text(name))
			}
		}
	}
}

// importFromStatement handles 'from x import y, z' and emits one dotted
// reference per imported name. A wildcard import emits the module itself.
func (w *walker) importFromStatement(node *sitter.Node) {
	var module string
	var names []string
	var wildcard, sawImport bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			module = w.text(child)
		case "dotted_name":
			if sawImport {
				names = append(names, w.text(child))
			} else {
				module = w.text(child)
			}
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, w.text(name))
			}
		case "wildcard_import":
			wildcard = true
		}
	}

	if module == "" {
		return
	}
	if wildcard || len(names) == 0 {
		w.addImport(module)
		return
	}
	for _, name := range names {
		if strings.HasSuffix(module, ".") {
			w.addImport(module + name)
		} else {
			w.addImport(module + "." + name)
		}
	}
}

func (w *walker) addImport(ref string) {
	ref = strings.Join(strings.Fields(ref), "")
	if ref != "" {
		w.facts.Imports = append(w.facts.Imports, ref)
	}
}

// leadingDocstring returns the docstring of a module or block: its first
// statement, when that statement is a bare string. Comments are skipped.
func (w *walker) leadingDocstring(block *sitter.Node) string {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if child.Type() != "expression_statement" || child.NamedChildCount() == 0 {
			return ""
		}
		str := child.NamedChild(0)
		if str.Type() != "string" {
			return ""
		}
		return cleanDoc(stringContent(w.text(str)))
	}
	return ""
}

func (w *walker) text(node *sitter.Node) string {
	return lang.NodeText(node, w.source)
}

// stringContent strips prefix letters and quotes from a string literal.
func stringContent(raw string) string {
	raw = strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return raw[len(q) : len(raw)-len(q)]
		}
	}
	return raw
}

// cleanDoc removes the common indentation of continuation lines and
// surrounding blank lines.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "    "), "\n")
	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " ")
		if stripped == "" {
			continue
		}
		if n := len(line) - len(stripped); indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func firstErrorLine(node *sitter.Node) int {
	if node.Type() == "ERROR" || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPoint().Row) + 1
}
