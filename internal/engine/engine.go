// Package engine runs a full analysis over a flat list of source files:
// per-file summaries in parallel, a single index fold, parallel resolution
// and finally the dependency graph.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/srcgraph/internal/graph"
	"github.com/phobologic/srcgraph/internal/model"
	"github.com/phobologic/srcgraph/internal/resolve"
	"github.com/phobologic/srcgraph/internal/summary"
)

// Options tunes a run. The zero value is valid.
type Options struct {
	// Workers caps concurrent per-file tasks; <= 0 means GOMAXPROCS.
	Workers int
	// Logger receives one record per diagnostic; nil discards.
	Logger *slog.Logger
}

// Result is everything produced by one Analyze call. It is not modified
// after Analyze returns.
type Result struct {
	Summaries    []model.FileSummary
	Index        *resolve.Index
	Dependencies []model.FileDependencies
	Graph        *graph.DependencyGraph
	Diagnostics  []model.Diagnostic
}

// Analyze processes files and resolves their dependencies. Summaries and
// Dependencies are ordered by path. Duplicate paths keep their first
// occurrence. Per-file failures are reported as diagnostics; the only error
// returned is the context's.
func Analyze(ctx context.Context, files []model.SourceFile, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files, diags := dedupe(files)
	paths := make([]string, len(files))
	for i := range files {
		paths[i] = files[i].Path
	}

	summaries := make([]model.FileSummary, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = summary.Build(gctx, files[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summarizing files: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		diags = append(diags, summaries[i].Diagnostics...)
	}

	index, indexDiags := resolve.BuildIndex(summaries)
	diags = append(diags, indexDiags...)

	resolver := resolve.NewResolver(index, paths)
	deps := make([]model.FileDependencies, len(summaries))
	depDiags := make([][]model.Diagnostic, len(summaries))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range summaries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			deps[i], depDiags[i] = resolver.Resolve(summaries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolving dependencies: %w", err)
	}
	for _, d := range depDiags {
		diags = append(diags, d...)
	}

	sortDiagnostics(diags)
	for _, d := range diags {
		logDiagnostic(logger, d)
	}

	return &Result{
		Summaries:    summaries,
		Index:        index,
		Dependencies: deps,
		Graph:        graph.Build(paths, deps),
		Diagnostics:  diags,
	}, nil
}

// dedupe sorts files by normalized path and drops repeated paths.
func dedupe(files []model.SourceFile) ([]model.SourceFile, []model.Diagnostic) {
	out := make([]model.SourceFile, 0, len(files))
	for _, f := range files {
		out = append(out, model.NewSourceFile(f.Path, f.Content))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	var diags []model.Diagnostic
	kept := out[:0]
	for i, f := range out {
		if i > 0 && f.Path == out[i-1].Path {
			diags = append(diags, model.Diagnostic{
				Kind:    model.DuplicatePath,
				Path:    f.Path,
				Message: "path supplied more than once, keeping the first",
			})
			continue
		}
		kept = append(kept, f)
	}
	return kept, diags
}

func sortDiagnostics(diags []model.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Path < diags[j].Path
	})
}

func logDiagnostic(logger *slog.Logger, d model.Diagnostic) {
	attrs := []any{
		slog.String("file", d.Path),
		slog.String("kind", string(d.Kind)),
		slog.String("detail", d.Message),
	}
	switch d.Kind {
	case model.SyntaxFailure, model.ResolutionAmbiguity, model.DuplicatePath:
		logger.Warn("analysis diagnostic", attrs...)
	default:
		logger.Debug("analysis diagnostic", attrs...)
	}
}

// Edges returns every dependency edge, sorted.
func (r *Result) Edges() []model.DependencyEdge {
	return r.Graph.Edges()
}

// RepoMap assembles the report shape: files ordered by descending rank
// (ties by path) with their ranks, edges and diagnostics.
func (r *Result) RepoMap(name, root string) *model.RepoMap {
	ranks := graph.Rank(r.Graph)

	files := make([]model.FileSummary, len(r.Summaries))
	copy(files, r.Summaries)
	sort.SliceStable(files, func(i, j int) bool {
		ri, rj := ranks[files[i].Path], ranks[files[j].Path]
		if ri != rj {
			return ri > rj
		}
		return files[i].Path < files[j].Path
	})

	return &model.RepoMap{
		RepoName:    name,
		Root:        root,
		Files:       files,
		Ranks:       ranks,
		Edges:       r.Edges(),
		Diagnostics: r.Diagnostics,
	}
}
