// Package summary merges structural facts, line metrics and scores into one
// FileSummary per file.
package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/phobologic/srcgraph/internal/heuristic"
	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/metrics"
	"github.com/phobologic/srcgraph/internal/model"
	"github.com/phobologic/srcgraph/internal/parse"
)

// extractor fills the structural fields of s for one language family.
type extractor interface {
	extract(ctx context.Context, l *lang.Language, file model.SourceFile, s *model.FileSummary)
}

// maintainability computes the file's maintainability index.
var maintainability = metrics.Maintainability

var families = map[lang.Family]extractor{
	lang.SyntaxTree: syntaxTreeFamily{},
	lang.Pattern:    patternFamily{},
}

// Build analyzes a single file. It never fails: extraction and scoring
// problems are recorded in the summary's Diagnostics. Files with an
// unsupported extension get empty facts and full line metrics.
func Build(ctx context.Context, file model.SourceFile) model.FileSummary {
	s := model.FileSummary{
		Path:    file.Path,
		Metrics: metrics.CountLines(file.Content),
	}

	l := lang.ForExtension(file.Extension)
	if l == nil {
		setEmptyFacts(&s)
		return s
	}
	s.Language = l.Name
	s.Family = string(l.Family)

	if ex, ok := families[l.Family]; ok {
		ex.extract(ctx, l, file, &s)
	} else {
		setEmptyFacts(&s)
	}
	return s
}

func setEmptyFacts(s *model.FileSummary) {
	s.Functions = []model.FunctionFact{}
	s.Classes = []model.ClassFact{}
	s.Imports = []string{}
}

type syntaxTreeFamily struct{}

func (syntaxTreeFamily) extract(ctx context.Context, l *lang.Language, file model.SourceFile, s *model.FileSummary) {
	facts, err := parse.Analyze(ctx, l, file.Content)
	if err != nil {
		msg := err.Error()
		if !errors.Is(err, parse.ErrSyntax) {
			msg = fmt.Sprintf("%v: %v", parse.ErrSyntax, err)
		}
		s.Diagnostics = append(s.Diagnostics, model.Diagnostic{
			Kind:    model.SyntaxFailure,
			Path:    file.Path,
			Message: msg,
		})
		return
	}

	s.Description = facts.Description
	s.Functions = facts.Functions
	s.Classes = facts.Classes
	s.Imports = facts.Imports

	if err := score(facts.Complexity, s); err != nil {
		s.Diagnostics = append(s.Diagnostics, model.Diagnostic{
			Kind:    model.MetricFailure,
			Path:    file.Path,
			Message: err.Error(),
		})
	}
}

// score sets Complexity and Maintainability. A panic inside the scorer is
// returned as an error so the extracted facts survive.
func score(complexity int, s *model.FileSummary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.Complexity, s.Maintainability = nil, nil
			err = fmt.Errorf("scoring panicked: %v", r)
		}
	}()

	cc := complexity
	s.Complexity = &cc

	mi, err := maintainability(cc, s.Metrics)
	switch {
	case errors.Is(err, metrics.ErrDegenerateInput):
		return nil
	case err != nil:
		return err
	}
	s.Maintainability = &mi
	return nil
}

type patternFamily struct{}

func (patternFamily) extract(_ context.Context, l *lang.Language, file model.SourceFile, s *model.FileSummary) {
	facts := heuristic.Analyze(file.Content, l.IsComponentExtension(file.Extension))
	s.Functions = facts.Functions
	s.Classes = facts.Classes
	s.Imports = facts.Imports
	s.Exports = facts.Exports
	s.Hooks = facts.Hooks
}
