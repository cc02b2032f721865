// Package model defines core data structures for srcgraph.
package model

import (
	"path"
	"strings"
)

// SourceFile is one input file supplied by the caller. Path is the unique key.
type SourceFile struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Content   []byte `json:"-"`
}

// NewSourceFile builds a SourceFile with a forward-slash path and derived
// name and (lower-cased) extension.
func NewSourceFile(p string, content []byte) SourceFile {
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	name := path.Base(p)
	return SourceFile{
		Path:      p,
		Name:      name,
		Extension: strings.ToLower(path.Ext(name)),
		Content:   content,
	}
}

// ParamKind distinguishes how a parameter is declared.
type ParamKind string

const (
	Positional ParamKind = "positional"
	Default    ParamKind = "default"
	Variadic   ParamKind = "variadic"
	Keyword    ParamKind = "keyword"
)

// Param is a single declared function parameter.
type Param struct {
	Name string    `json:"name"`
	Kind ParamKind `json:"kind"`
}

// String renders the parameter the way it is listed in summaries:
// x, x=..., *x, **x.
func (p Param) String() string {
	switch p.Kind {
	case Default:
		return p.Name + "=..."
	case Variadic:
		return "*" + p.Name
	case Keyword:
		return "**" + p.Name
	default:
		return p.Name
	}
}

// FunctionFact describes one function, method or arrow function.
type FunctionFact struct {
	Name string `json:"name"`
	// Scope is the dotted chain of enclosing class/function names, "" at module level.
	Scope      string  `json:"scope,omitempty"`
	Params     []Param `json:"params"`
	Complexity int     `json:"complexity"`
	Docstring  string  `json:"docstring,omitempty"`
	Async      bool    `json:"async,omitempty"`
	Line       int     `json:"line"`
}

// QualifiedName returns Scope.Name, or Name at module level.
func (f FunctionFact) QualifiedName() string {
	if f.Scope == "" {
		return f.Name
	}
	return f.Scope + "." + f.Name
}

// ParamList renders the parameters as a comma-separated list.
func (f FunctionFact) ParamList() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// ClassFact describes one class and the methods declared directly in its body.
type ClassFact struct {
	Name      string         `json:"name"`
	Scope     string         `json:"scope,omitempty"`
	Methods   []FunctionFact `json:"methods"`
	Docstring string         `json:"docstring,omitempty"`
	// Extends is the parent class name as written; it is never resolved.
	Extends string `json:"extends,omitempty"`
	Line    int    `json:"line"`
}

// QualifiedName returns Scope.Name, or Name at module level.
func (c ClassFact) QualifiedName() string {
	if c.Scope == "" {
		return c.Name
	}
	return c.Scope + "." + c.Name
}

// LineMetrics holds per-file line counts.
type LineMetrics struct {
	Total        int     `json:"total_lines"`
	Code         int     `json:"code_lines"`
	Comment      int     `json:"comment_lines"`
	Blank        int     `json:"blank_lines"`
	CommentRatio float64 `json:"comment_ratio"`
}

// DiagnosticKind classifies a non-fatal problem found during a run.
type DiagnosticKind string

const (
	SyntaxFailure       DiagnosticKind = "syntax_failure"
	MetricFailure       DiagnosticKind = "metric_failure"
	ResolutionAmbiguity DiagnosticKind = "resolution_ambiguity"
	UnresolvedImport    DiagnosticKind = "unresolved_import"
	DuplicatePath       DiagnosticKind = "duplicate_path"
)

// Diagnostic records a per-file failure or warning. None of them abort a run.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Path    string         `json:"path"`
	Message string         `json:"message"`
}

// FileSummary is the merged analysis record for one file.
//
// Nil Functions, Classes and Imports mean the structural facts are unknown
// (the file failed to parse). Complexity and Maintainability are nil for the
// pattern family, for unsupported files and on syntax failure.
type FileSummary struct {
	Path            string         `json:"path"`
	Language        string         `json:"language,omitempty"`
	Family          string         `json:"family,omitempty"`
	Description     string         `json:"description,omitempty"`
	Functions       []FunctionFact `json:"functions"`
	Classes         []ClassFact    `json:"classes"`
	Imports         []string       `json:"imports"`
	Exports         []string       `json:"exports,omitempty"`
	Hooks           []string       `json:"hooks,omitempty"`
	Metrics         LineMetrics    `json:"metrics"`
	Complexity      *int           `json:"complexity"`
	Maintainability *float64       `json:"maintainability_index"`
	Diagnostics     []Diagnostic   `json:"diagnostics,omitempty"`
}

// HasFacts reports whether structural facts were extracted.
func (s *FileSummary) HasFacts() bool {
	return s.Functions != nil && s.Classes != nil && s.Imports != nil
}

// FileDependencies holds the resolved imports of one file.
// Internal holds file paths, External holds package identifiers.
type FileDependencies struct {
	Path     string   `json:"path"`
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// EdgeKind indicates whether an edge points into the analyzed set.
type EdgeKind string

const (
	Internal EdgeKind = "internal"
	External EdgeKind = "external"
)

// DependencyEdge represents an edge in the dependency graph.
// Target is a file path for internal edges and a package name for external ones.
type DependencyEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// RepoMap is the complete analyzed repository, ready for serialization.
type RepoMap struct {
	RepoName    string             `json:"repo"`
	Root        string             `json:"root"`
	Files       []FileSummary      `json:"files"`
	Ranks       map[string]float64 `json:"ranks,omitempty"`
	Edges       []DependencyEdge   `json:"dependencies"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}
