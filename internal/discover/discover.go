// Package discover finds source files in a repository and loads them as the
// flat, pre-read file list the analysis engine consumes.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/model"
)

// FileEntry represents a discovered file. Language is empty for text files
// that no analyzer supports.
type FileEntry struct {
	Path     string // Relative to repo root, forward slashes
	Language string
}

// Options controls which files are returned.
type Options struct {
	// Languages restricts results to the named languages; empty means all.
	Languages []string
	// Exclude drops files whose relative path matches any doublestar glob.
	Exclude []string
	// IncludeText adds other text files (metrics only). Ignored when
	// Languages is set.
	IncludeText bool
	// SkipTests drops files that look like tests.
	SkipTests bool
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
	".next":         {},
	"coverage":      {},
}

// textExtensions lists extensions treated as text when IncludeText is set.
var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".rst": {}, ".html": {}, ".css": {}, ".java": {},
	".c": {}, ".cpp": {}, ".h": {}, ".hpp": {}, ".json": {}, ".xml": {},
	".yaml": {}, ".yml": {}, ".toml": {}, ".ini": {}, ".cfg": {}, ".conf": {},
	".sh": {}, ".bat": {}, ".ps1": {}, ".rb": {}, ".pl": {}, ".php": {},
	".go": {}, ".rs": {}, ".vue": {}, ".swift": {}, ".kt": {}, ".scala": {},
	".groovy": {}, ".lua": {}, ".r": {}, ".dart": {}, ".ex": {}, ".exs": {},
	".erl": {}, ".hrl": {}, ".clj": {}, ".hs": {}, ".elm": {}, ".f90": {},
	".f95": {}, ".f03": {}, ".sql": {}, ".cs": {}, ".ipynb": {}, ".rmd": {},
	".jl": {}, ".fs": {}, ".ml": {}, ".mli": {}, ".d": {}, ".scm": {},
	".lisp": {}, ".el": {}, ".m": {}, ".mm": {}, ".vb": {}, ".asm": {},
	".s": {}, ".dockerfile": {}, ".gradle": {},
}

// Files discovers files under root, sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[l] = struct{}{}
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if p == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		if excluded(rel, opts.Exclude) || (opts.SkipTests && IsTestFile(rel)) {
			return nil
		}

		ext := strings.ToLower(path.Ext(name))
		l := lang.ForExtension(ext)
		switch {
		case l == nil:
			if _, text := textExtensions[ext]; !text || !opts.IncludeText || len(langSet) > 0 {
				return nil
			}
			results = append(results, FileEntry{Path: rel})
			return nil
		case len(langSet) > 0:
			if _, ok := langSet[l.Name]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Language: l.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Load reads every entry. Files larger than maxSize bytes (when maxSize > 0)
// and unreadable files are skipped with a warning.
func Load(root string, entries []FileEntry, maxSize int64, logger *slog.Logger) []model.SourceFile {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	files := make([]model.SourceFile, 0, len(entries))
	for _, e := range entries {
		abs := filepath.Join(root, filepath.FromSlash(e.Path))
		if maxSize > 0 {
			if fi, err := os.Stat(abs); err == nil && fi.Size() > maxSize {
				logger.Warn("file skipped",
					slog.String("file", e.Path),
					slog.String("reason", fmt.Sprintf("larger than %d bytes", maxSize)))
				continue
			}
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			logger.Warn("file skipped", slog.String("file", e.Path), slog.Any("error", err))
			continue
		}
		files = append(files, model.NewSourceFile(e.Path, content))
	}
	return files
}

var testDirs = map[string]struct{}{
	"test":      {},
	"tests":     {},
	"spec":      {},
	"__tests__": {},
}

// IsTestFile reports whether rel looks like a test: it lives under a test
// directory or its name follows a common test naming pattern.
func IsTestFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir, name := path.Split(rel)
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if _, ok := testDirs[part]; ok {
			return true
		}
	}

	switch {
	case strings.HasSuffix(name, "_test.go"),
		strings.HasSuffix(name, "_spec.rb"),
		strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py"),
		strings.Contains(name, ".test."),
		strings.Contains(name, ".spec."):
		return true
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	p := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(p)
	if err != nil {
		return nil
	}
	return gi
}
