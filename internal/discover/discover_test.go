package discover

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestDiscoverSourceFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "print('hello')")
	writeFile(t, dir, "lib/util.py", "def helper(): pass")
	writeFile(t, dir, "web/app.tsx", "export const App = () => null")
	// Text file is ignored unless IncludeText is set
	writeFile(t, dir, "readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.py", "secret")

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(entries), paths(entries))
	}

	// Sorted, forward slashes
	want := []FileEntry{
		{Path: "lib/util.py", Language: "python"},
		{Path: "main.py", Language: "python"},
		{Path: "web/app.tsx", Language: "typescript"},
	}
	for i, e := range entries {
		if e != want[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, e, want[i])
		}
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, dir, "__pycache__/cached.py", "pass")
	writeFile(t, dir, ".hidden/secret.py", "pass")

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Path != "main.py" {
		t.Errorf("expected main.py, got %q", entries[0].Path)
	}
}

func TestDiscoverLanguageFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "lib.py", "pass")
	writeFile(t, dir, "notes.md", "# notes")

	entries, err := Files(dir, Options{Languages: []string{"python"}, IncludeText: true})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for python filter, got %d: %v", len(entries), paths(entries))
	}

	entries, err = Files(dir, Options{Languages: []string{"javascript"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries for javascript filter, got %d", len(entries))
	}
}

func TestDiscoverIncludeText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "README.md", "# hi")
	writeFile(t, dir, "image.png", "\x89PNG")

	entries, err := Files(dir, Options{IncludeText: true})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := strings.Join(paths(entries), ","); got != "README.md,main.py" {
		t.Fatalf("got %s", got)
	}
	if entries[0].Language != "" {
		t.Errorf("text file language = %q, want empty", entries[0].Language)
	}
}

func TestDiscoverExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/app.js", "")
	writeFile(t, dir, "src/app.min.js", "")
	writeFile(t, dir, "third_party/vendor/lib.py", "")

	entries, err := Files(dir, Options{Exclude: []string{"**/*.min.js", "third_party/**"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := strings.Join(paths(entries), ","); got != "src/app.js" {
		t.Errorf("got %s", got)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n*_pb2.py\n")
	writeFile(t, dir, "main.py", "")
	writeFile(t, dir, "api_pb2.py", "")
	writeFile(t, dir, "generated/out.py", "")

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := strings.Join(paths(entries), ","); got != "main.py" {
		t.Errorf("got %s", got)
	}
}

func TestDiscoverSkipTests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.py", "")
	writeFile(t, dir, "test_app.py", "")
	writeFile(t, dir, "tests/conftest.py", "")
	writeFile(t, dir, "web/app.test.ts", "")

	entries, err := Files(dir, Options{SkipTests: true})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := strings.Join(paths(entries), ","); got != "app.py" {
		t.Errorf("got %s", got)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.py", "pass")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.py"), filepath.Join(dir, "link.py"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "real.py" {
		t.Errorf("expected real.py, got %q", entries[0].Path)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "pkg/small.py", "x = 1\n")
	writeFile(t, dir, "big.py", strings.Repeat("y = 2\n", 100))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	entries := []FileEntry{
		{Path: "big.py", Language: "python"},
		{Path: "missing.py", Language: "python"},
		{Path: "pkg/small.py", Language: "python"},
	}
	files := Load(dir, entries, 100, logger)

	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	f := files[0]
	if f.Path != "pkg/small.py" || f.Name != "small.py" || f.Extension != ".py" {
		t.Errorf("unexpected file: %+v", f)
	}
	if string(f.Content) != "x = 1\n" {
		t.Errorf("content = %q", f.Content)
	}
	if !strings.Contains(logs.String(), "file=big.py") {
		t.Errorf("expected size warning, got: %s", logs.String())
	}
	if !strings.Contains(logs.String(), "file=missing.py") {
		t.Errorf("expected read warning, got: %s", logs.String())
	}

	if got := Load(dir, entries, 0, nil); len(got) != 2 {
		t.Errorf("no size limit: expected 2 files, got %d", len(got))
	}
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path string
		want bool
	}{
		// Test directory components
		{"tests/test_scenes.py", true},
		{"tests/conftest.py", true},
		{"tests/__init__.py", true},
		{"spec/models/user_spec.rb", true},
		{"src/__tests__/foo.js", true},
		{"src/test/java/FooTest.java", true},
		{"test/foo_test.exs", true},
		// Filename patterns
		{"internal/graph/graph_test.go", true},
		{"test_helpers.py", true},
		{"user_spec.rb", true},
		{"foo.test.js", true},
		{"foo.spec.ts", true},
		// Production files
		{"loom/models.py", false},
		{"loom/routers/scenes.py", false},
		{"internal/graph/graph.go", false},
		{"conftest.py", false},      // top-level conftest, not in tests/
		{"testing_utils.go", false}, // contains "testing" but not a test pattern
		{"loom/database.py", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			got := IsTestFile(tc.path)
			if got != tc.want {
				t.Errorf("IsTestFile(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
