package resolve

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/model"
)

// ProbeExtensions are appended, in order, to relative pattern-family
// specifiers whose exact target is not in the file set.
var ProbeExtensions = []string{".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

// Resolver classifies each file's imports as internal or external.
type Resolver struct {
	index  *Index
	paths  map[string]struct{}
	pyKeys []string
}

// NewResolver returns a resolver over index and the full set of analyzed paths.
func NewResolver(index *Index, paths []string) *Resolver {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return &Resolver{
		index:  index,
		paths:  set,
		pyKeys: index.Keys(lang.SyntaxTree),
	}
}

// Resolve returns the sorted, deduplicated dependencies of s. A file never
// depends on itself.
func (r *Resolver) Resolve(s model.FileSummary) (model.FileDependencies, []model.Diagnostic) {
	internal := make(map[string]struct{})
	external := make(map[string]struct{})
	var diags []model.Diagnostic

	for _, ref := range s.Imports {
		var target, ext string
		var diag *model.Diagnostic
		switch lang.Family(s.Family) {
		case lang.SyntaxTree:
			target, ext, diag = r.resolveModule(s.Path, ref)
		case lang.Pattern:
			target, ext, diag = r.resolveSpecifier(s.Path, ref)
		default:
			continue
		}

		if diag != nil {
			diags = append(diags, *diag)
		}
		switch {
		case target != "" && target != s.Path:
			internal[target] = struct{}{}
		case ext != "":
			external[ext] = struct{}{}
		}
	}

	return model.FileDependencies{
		Path:     s.Path,
		Internal: sortedSet(internal),
		External: sortedSet(external),
	}, diags
}

// resolveModule resolves a dotted reference. The longest registered key that
// equals ref or is a dotted prefix of it wins. Failing that, ref may name a
// package whose submodules are registered.
func (r *Resolver) resolveModule(importer, ref string) (string, string, *model.Diagnostic) {
	abs, ok := absoluteModule(importer, ref)
	if !ok {
		return "", "", &model.Diagnostic{
			Kind:    model.UnresolvedImport,
			Path:    importer,
			Message: fmt.Sprintf("relative import %s escapes the analyzed root", ref),
		}
	}

	for key := abs; key != ""; key = parentModule(key) {
		if p, found := r.index.Lookup(lang.SyntaxTree, key); found {
			return p, "", nil
		}
	}

	if target, files := r.packagePrefix(abs); target != "" {
		var diag *model.Diagnostic
		if files > 1 {
			diag = &model.Diagnostic{
				Kind:    model.ResolutionAmbiguity,
				Path:    importer,
				Message: fmt.Sprintf("%s matches modules in %d files, using %s", ref, files, target),
			}
		}
		return target, "", diag
	}

	if strings.HasPrefix(ref, ".") {
		return "", "", &model.Diagnostic{
			Kind:    model.UnresolvedImport,
			Path:    importer,
			Message: fmt.Sprintf("relative import %s not found", ref),
		}
	}
	return "", ref, nil
}

// packagePrefix returns the file of the first key under abs+"." in key order
// and the number of distinct files registering keys under it.
func (r *Resolver) packagePrefix(abs string) (string, int) {
	prefix := abs + "."
	i := sort.SearchStrings(r.pyKeys, prefix)

	var first string
	files := make(map[string]struct{})
	for ; i < len(r.pyKeys) && strings.HasPrefix(r.pyKeys[i], prefix); i++ {
		p, _ := r.index.Lookup(lang.SyntaxTree, r.pyKeys[i])
		if first == "" {
			first = p
		}
		files[p] = struct{}{}
	}
	return first, len(files)
}

// absoluteModule rewrites a relative reference (.x, ..y.z) against the
// importer's package. It reports false when the reference climbs above the
// root.
func absoluteModule(importer, ref string) (string, bool) {
	dots := len(ref) - len(strings.TrimLeft(ref, "."))
	if dots == 0 {
		return ref, true
	}

	pkg := ModuleID(importer)
	if path.Base(strings.TrimSuffix(importer, path.Ext(importer))) != "__init__" {
		pkg = parentModule(pkg)
	}
	for i := 1; i < dots; i++ {
		if pkg == "" {
			return "", false
		}
		pkg = parentModule(pkg)
	}

	rest := ref[dots:]
	switch {
	case pkg == "" && rest == "":
		return "", false
	case pkg == "":
		return rest, true
	case rest == "":
		return pkg, true
	}
	return pkg + "." + rest, true
}

func parentModule(id string) string {
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return ""
}

// resolveSpecifier resolves a module specifier. Only ., .., ./ and ../
// specifiers can be internal; a bare . or .. names a directory and resolves
// to its index file. Other specifiers are reduced to their package name,
// except absolute paths, which are reported as unresolved.
func (r *Resolver) resolveSpecifier(importer, ref string) (string, string, *model.Diagnostic) {
	rel := ref
	if ref == "." || ref == ".." {
		rel += "/"
	}
	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		if pkg := PackageName(ref); pkg != "" && !strings.HasPrefix(ref, "/") {
			return "", pkg, nil
		}
		return "", "", unresolved(importer, ref)
	}

	base := path.Clean(path.Dir(importer) + "/" + rel)
	if base != "." {
		if r.hasPath(base) {
			return base, "", nil
		}
		for _, ext := range ProbeExtensions {
			if r.hasPath(base + ext) {
				return base + ext, "", nil
			}
		}
	}
	for _, ext := range ProbeExtensions {
		if candidate := path.Join(base, "index"+ext); r.hasPath(candidate) {
			return candidate, "", nil
		}
	}
	return "", "", unresolved(importer, ref)
}

func unresolved(importer, ref string) *model.Diagnostic {
	return &model.Diagnostic{
		Kind:    model.UnresolvedImport,
		Path:    importer,
		Message: fmt.Sprintf("%s not found in analyzed files", ref),
	}
}

func (r *Resolver) hasPath(p string) bool {
	_, ok := r.paths[p]
	return ok
}

// PackageName truncates a bare specifier to its package:
// @scope/pkg/sub becomes @scope/pkg and fs/promises becomes fs.
func PackageName(ref string) string {
	parts := strings.Split(ref, "/")
	if strings.HasPrefix(ref, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
