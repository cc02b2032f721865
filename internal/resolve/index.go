// Package resolve maps import references to files in the analyzed set.
//
// BuildIndex folds per-file summaries into a module index in one
// deterministic pass; a Resolver then answers lookups against that index
// without mutating it and can be shared between goroutines.
package resolve

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/model"
)

// Entry is one registered key.
type Entry struct {
	Family lang.Family `json:"family"`
	Key    string      `json:"key"`
	Path   string      `json:"path"`
}

// Index maps module identifiers and exported names to defining files.
// Each language family has its own namespace.
type Index struct {
	keys map[lang.Family]map[string]string
}

// ModuleID derives the dotted module identifier of a grammar-backed file:
// the path without its extension with '/' replaced by '.'. A package's
// __init__ file is identified with the package itself.
func ModuleID(p string) string {
	id := strings.TrimSuffix(p, path.Ext(p))
	id = strings.ReplaceAll(id, "/", ".")
	return strings.TrimSuffix(id, ".__init__")
}

// BuildIndex registers every file's keys. summaries must be sorted by path;
// when two files register the same key the first one keeps it and the later
// one is reported as a resolution_ambiguity diagnostic.
func BuildIndex(summaries []model.FileSummary) (*Index, []model.Diagnostic) {
	ix := &Index{keys: make(map[lang.Family]map[string]string)}
	var diags []model.Diagnostic

	register := func(family lang.Family, key, file string) {
		if key == "" {
			return
		}
		ns := ix.keys[family]
		if ns == nil {
			ns = make(map[string]string)
			ix.keys[family] = ns
		}
		owner, taken := ns[key]
		if !taken {
			ns[key] = file
			return
		}
		if owner == file {
			return
		}
		diags = append(diags, model.Diagnostic{
			Kind:    model.ResolutionAmbiguity,
			Path:    file,
			Message: fmt.Sprintf("%s already registered by %s", key, owner),
		})
	}

	for i := range summaries {
		s := &summaries[i]
		switch lang.Family(s.Family) {
		case lang.SyntaxTree:
			module := ModuleID(s.Path)
			register(lang.SyntaxTree, module, s.Path)
			for _, fn := range s.Functions {
				register(lang.SyntaxTree, module+"."+fn.QualifiedName(), s.Path)
			}
			for _, cls := range s.Classes {
				register(lang.SyntaxTree, module+"."+cls.QualifiedName(), s.Path)
			}
		case lang.Pattern:
			for _, name := range s.Exports {
				register(lang.Pattern, name, s.Path)
			}
		}
	}
	return ix, diags
}

// Lookup returns the file that registered key in family's namespace.
func (ix *Index) Lookup(family lang.Family, key string) (string, bool) {
	p, ok := ix.keys[family][key]
	return p, ok
}

// Keys returns the sorted keys of one namespace.
func (ix *Index) Keys(family lang.Family) []string {
	keys := make([]string, 0, len(ix.keys[family]))
	for k := range ix.keys[family] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered keys across all namespaces.
func (ix *Index) Len() int {
	n := 0
	for _, ns := range ix.keys {
		n += len(ns)
	}
	return n
}

// Entries returns every registration ordered by family, then key.
func (ix *Index) Entries() []Entry {
	families := make([]string, 0, len(ix.keys))
	for f := range ix.keys {
		families = append(families, string(f))
	}
	sort.Strings(families)

	var entries []Entry
	for _, f := range families {
		family := lang.Family(f)
		for _, k := range ix.Keys(family) {
			entries = append(entries, Entry{Family: family, Key: k, Path: ix.keys[family][k]})
		}
	}
	return entries
}
