package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/model"
)

func pySummary(p string, imports []string, fns ...string) model.FileSummary {
	s := model.FileSummary{
		Path:      p,
		Language:  "python",
		Family:    string(lang.SyntaxTree),
		Functions: []model.FunctionFact{},
		Classes:   []model.ClassFact{},
		Imports:   imports,
	}
	if s.Imports == nil {
		s.Imports = []string{}
	}
	for _, fn := range fns {
		s.Functions = append(s.Functions, model.FunctionFact{Name: fn, Complexity: 1})
	}
	return s
}

func jsSummary(p string, imports []string, exports ...string) model.FileSummary {
	if imports == nil {
		imports = []string{}
	}
	return model.FileSummary{
		Path:      p,
		Language:  "javascript",
		Family:    string(lang.Pattern),
		Functions: []model.FunctionFact{},
		Classes:   []model.ClassFact{},
		Imports:   imports,
		Exports:   exports,
	}
}

func pathsOf(summaries []model.FileSummary) []string {
	paths := make([]string, len(summaries))
	for i := range summaries {
		paths[i] = summaries[i].Path
	}
	return paths
}

func TestModuleID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"a.py", "a"},
		{"pkg/mod.py", "pkg.mod"},
		{"pkg.mod.py", "pkg.mod"},
		{"pkg/__init__.py", "pkg"},
		{"pkg/sub/__init__.py", "pkg.sub"},
		{"scripts/run", "scripts.run"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModuleID(tt.path), tt.path)
	}
}

func TestBuildIndexRegistersKeys(t *testing.T) {
	t.Parallel()

	py := pySummary("pkg/util.py", nil, "helper")
	py.Classes = []model.ClassFact{{Name: "Tool"}}
	py.Functions = append(py.Functions, model.FunctionFact{Name: "run", Scope: "Tool", Complexity: 1})

	ix, diags := BuildIndex([]model.FileSummary{
		py,
		jsSummary("web/app.js", nil, "App", "helper"),
	})
	assert.Empty(t, diags)

	for _, key := range []string{"pkg.util", "pkg.util.helper", "pkg.util.Tool", "pkg.util.Tool.run"} {
		p, ok := ix.Lookup(lang.SyntaxTree, key)
		assert.True(t, ok, key)
		assert.Equal(t, "pkg/util.py", p)
	}

	p, ok := ix.Lookup(lang.Pattern, "helper")
	require.True(t, ok, "families have separate namespaces")
	assert.Equal(t, "web/app.js", p)

	_, ok = ix.Lookup(lang.Pattern, "pkg.util")
	assert.False(t, ok)
	assert.Equal(t, 6, ix.Len())

	entries := ix.Entries()
	require.Len(t, entries, 6)
	assert.Equal(t, Entry{Family: lang.Pattern, Key: "App", Path: "web/app.js"}, entries[0])
	assert.Equal(t, lang.SyntaxTree, entries[len(entries)-1].Family)
}

func TestBuildIndexFirstRegistrationWins(t *testing.T) {
	t.Parallel()

	// '.' sorts before '/', so pkg.mod.py comes first in path order.
	ix, diags := BuildIndex([]model.FileSummary{
		pySummary("pkg.mod.py", nil),
		pySummary("pkg/mod.py", nil),
	})

	p, ok := ix.Lookup(lang.SyntaxTree, "pkg.mod")
	require.True(t, ok)
	assert.Equal(t, "pkg.mod.py", p)

	require.Len(t, diags, 1)
	assert.Equal(t, model.ResolutionAmbiguity, diags[0].Kind)
	assert.Equal(t, "pkg/mod.py", diags[0].Path)
}

func TestBuildIndexSameFileRepeatIsSilent(t *testing.T) {
	t.Parallel()

	s := pySummary("a.py", nil, "f", "f")
	_, diags := BuildIndex([]model.FileSummary{s})
	assert.Empty(t, diags)
}

func TestResolvePython(t *testing.T) {
	t.Parallel()

	summaries := []model.FileSummary{
		pySummary("a.py", nil, "f"),
		pySummary("app/__init__.py", []string{".core"}),
		pySummary("app/core.py", []string{"app.models.User", "..a", "os.path", "app.core", "a.f"}),
		pySummary("app/models.py", []string{".core.run", "requests", "a"}),
		pySummary("b.py", []string{"a", "a", "app", "numpy"}),
	}
	ix, diags := BuildIndex(summaries)
	require.Empty(t, diags)
	r := NewResolver(ix, pathsOf(summaries))

	tests := []struct {
		path     string
		internal []string
		external []string
	}{
		{"app/__init__.py", []string{"app/core.py"}, []string{}},
		{"app/core.py", []string{"a.py", "app/models.py"}, []string{"os.path"}},
		{"app/models.py", []string{"a.py", "app/core.py"}, []string{"requests"}},
		{"b.py", []string{"a.py", "app/__init__.py"}, []string{"numpy"}},
	}
	byPath := map[string]model.FileSummary{}
	for _, s := range summaries {
		byPath[s.Path] = s
	}
	for _, tt := range tests {
		deps, _ := r.Resolve(byPath[tt.path])
		assert.Equal(t, tt.path, deps.Path)
		assert.Equal(t, tt.internal, deps.Internal, tt.path)
		assert.Equal(t, tt.external, deps.External, tt.path)
	}
}

func TestResolvePythonPlainImport(t *testing.T) {
	t.Parallel()

	summaries := []model.FileSummary{
		pySummary("a.py", nil, "f"),
		pySummary("b.py", []string{"a"}, "g"),
	}
	ix, _ := BuildIndex(summaries)
	deps, diags := NewResolver(ix, pathsOf(summaries)).Resolve(summaries[1])

	assert.Empty(t, diags)
	assert.Equal(t, []string{"a.py"}, deps.Internal)
	assert.Empty(t, deps.External)
}

func TestResolvePythonPackagePrefix(t *testing.T) {
	t.Parallel()

	summaries := []model.FileSummary{
		pySummary("lib/x.py", nil),
		pySummary("lib/y.py", nil),
		pySummary("main.py", []string{"lib"}),
	}
	ix, _ := BuildIndex(summaries)
	deps, diags := NewResolver(ix, pathsOf(summaries)).Resolve(summaries[2])

	assert.Equal(t, []string{"lib/x.py"}, deps.Internal)
	assert.Empty(t, deps.External)
	require.Len(t, diags, 1)
	assert.Equal(t, model.ResolutionAmbiguity, diags[0].Kind)
}

func TestResolvePythonRelativeEscape(t *testing.T) {
	t.Parallel()

	summaries := []model.FileSummary{pySummary("top.py", []string{"...far", ".missing"})}
	ix, _ := BuildIndex(summaries)
	deps, diags := NewResolver(ix, pathsOf(summaries)).Resolve(summaries[0])

	assert.Empty(t, deps.Internal)
	assert.Empty(t, deps.External, "relative references are never external")
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, model.UnresolvedImport, d.Kind)
	}
}

func TestResolveSpecifiers(t *testing.T) {
	t.Parallel()

	summaries := []model.FileSummary{
		jsSummary("src/components/index.ts", nil),
		jsSummary("src/main.js", []string{
			"./util",
			"./components",
			"../shared/config.json",
			"react",
			"@scope/pkg/sub",
			"fs/promises",
			"./main",
			"./missing",
		}),
		jsSummary("src/util.js", nil),
		jsSummary("shared/config.json", nil),
	}
	ix, _ := BuildIndex(summaries)
	deps, diags := NewResolver(ix, pathsOf(summaries)).Resolve(summaries[1])

	assert.Equal(t, []string{"shared/config.json", "src/components/index.ts", "src/util.js"}, deps.Internal)
	assert.Equal(t, []string{"@scope/pkg", "fs", "react"}, deps.External)
	require.Len(t, diags, 1)
	assert.Equal(t, model.UnresolvedImport, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "./missing")
}

func TestResolveDirectorySpecifiers(t *testing.T) {
	t.Parallel()

	summaries := []model.FileSummary{
		jsSummary("index.js", nil),
		jsSummary("src/app/view.js", []string{"..", "../..", ".", "/abs/x"}),
		jsSummary("src/index.ts", nil),
	}
	ix, _ := BuildIndex(summaries)
	deps, diags := NewResolver(ix, pathsOf(summaries)).Resolve(summaries[1])

	assert.Equal(t, []string{"index.js", "src/index.ts"}, deps.Internal)
	assert.Empty(t, deps.External)
	require.Len(t, diags, 2)
	assert.Equal(t, model.UnresolvedImport, diags[0].Kind)
	assert.Equal(t, ". not found in analyzed files", diags[0].Message)
	assert.Equal(t, model.UnresolvedImport, diags[1].Kind)
	assert.Equal(t, "src/app/view.js", diags[1].Path)
	assert.Contains(t, diags[1].Message, "/abs/x")
}

func TestResolveUnsupportedOrFailed(t *testing.T) {
	t.Parallel()

	ix, _ := BuildIndex(nil)
	r := NewResolver(ix, []string{"notes.txt", "bad.py"})

	deps, diags := r.Resolve(model.FileSummary{Path: "notes.txt", Imports: []string{}})
	assert.Empty(t, diags)
	assert.NotNil(t, deps.Internal)
	assert.NotNil(t, deps.External)

	deps, _ = r.Resolve(model.FileSummary{Path: "bad.py", Family: string(lang.SyntaxTree)})
	assert.Empty(t, deps.Internal)
	assert.Empty(t, deps.External)
}

func TestPackageName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"react":            "react",
		"fs/promises":      "fs",
		"@scope/pkg":       "@scope/pkg",
		"@scope/pkg/sub/x": "@scope/pkg",
		"lodash/fp/get":    "lodash",
		"node:path":        "node:path",
		"@bare":            "@bare",
	}
	for in, want := range tests {
		assert.Equal(t, want, PackageName(in), in)
	}
}
