// Package ranking selects and filters the files of an analyzed RepoMap.
package ranking

import (
	"strings"

	"github.com/phobologic/srcgraph/internal/model"
)

// SelectFiles returns a new RepoMap with only the top-ranked files.
// rm.Files must already be in rank order.
// If maxFiles is <= 0 or >= len(files), rm is returned unchanged.
func SelectFiles(rm *model.RepoMap, maxFiles int) *model.RepoMap {
	if maxFiles <= 0 || maxFiles >= len(rm.Files) {
		return rm
	}

	selected := rm.Files[:maxFiles]
	selectedPaths := make(map[string]struct{}, maxFiles)
	for i := range selected {
		selectedPaths[selected[i].Path] = struct{}{}
	}

	// External targets are kept for every selected source; internal edges
	// need both endpoints.
	var edges []model.DependencyEdge
	for _, e := range rm.Edges {
		if _, ok := selectedPaths[e.Source]; !ok {
			continue
		}
		if e.Kind == model.Internal {
			if _, ok := selectedPaths[e.Target]; !ok {
				continue
			}
		}
		edges = append(edges, e)
	}

	return subset(rm, selected, selectedPaths, edges)
}

// FilterByFile returns a new RepoMap containing only files whose path
// contains substr (case-insensitive), with all dependency edges touching
// those files.
func FilterByFile(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	var files []model.FileSummary
	for i := range rm.Files {
		if strings.Contains(strings.ToLower(rm.Files[i].Path), lower) {
			matched[rm.Files[i].Path] = struct{}{}
			files = append(files, rm.Files[i])
		}
	}

	return subset(rm, files, matched, touching(rm.Edges, matched))
}

// FilterBySymbol returns a new RepoMap containing only files that define a
// function, method or class whose qualified name contains substr
// (case-insensitive). Each kept file lists only the matching definitions;
// a class whose name does not match is kept when one of its methods does,
// trimmed to those methods.
func FilterBySymbol(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)
	match := func(name string) bool {
		return strings.Contains(strings.ToLower(name), lower)
	}

	matched := make(map[string]struct{})
	var files []model.FileSummary
	for i := range rm.Files {
		fi := rm.Files[i]

		var fns []model.FunctionFact
		for _, fn := range fi.Functions {
			if match(fn.QualifiedName()) {
				fns = append(fns, fn)
			}
		}

		var classes []model.ClassFact
		for _, c := range fi.Classes {
			if match(c.QualifiedName()) {
				classes = append(classes, c)
				continue
			}
			var methods []model.FunctionFact
			for _, m := range c.Methods {
				if match(c.QualifiedName() + "." + m.Name) {
					methods = append(methods, m)
				}
			}
			if len(methods) > 0 {
				c.Methods = methods
				classes = append(classes, c)
			}
		}

		if len(fns) == 0 && len(classes) == 0 {
			continue
		}
		fi.Functions = nonNil(fns)
		fi.Classes = nonNil(classes)
		matched[fi.Path] = struct{}{}
		files = append(files, fi)
	}

	return subset(rm, files, matched, touching(rm.Edges, matched))
}

// touching returns the edges whose source or target is in paths.
func touching(all []model.DependencyEdge, paths map[string]struct{}) []model.DependencyEdge {
	var edges []model.DependencyEdge
	for _, e := range all {
		_, srcOK := paths[e.Source]
		_, tgtOK := paths[e.Target]
		if srcOK || (tgtOK && e.Kind == model.Internal) {
			edges = append(edges, e)
		}
	}
	return edges
}

func subset(rm *model.RepoMap, files []model.FileSummary, paths map[string]struct{}, edges []model.DependencyEdge) *model.RepoMap {
	var ranks map[string]float64
	if rm.Ranks != nil {
		ranks = make(map[string]float64, len(paths))
		for p := range paths {
			if r, ok := rm.Ranks[p]; ok {
				ranks[p] = r
			}
		}
	}

	var diags []model.Diagnostic
	for _, d := range rm.Diagnostics {
		if _, ok := paths[d.Path]; ok {
			diags = append(diags, d)
		}
	}

	return &model.RepoMap{
		RepoName:    rm.RepoName,
		Root:        rm.Root,
		Files:       files,
		Ranks:       ranks,
		Edges:       edges,
		Diagnostics: diags,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
