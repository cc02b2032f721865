package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/srcgraph/internal/config"
)

const (
	sentinelStart = "<!-- srcgraph:start -->"
	sentinelEnd   = "<!-- srcgraph:end -->"
)

// newInitCmd builds the `srcgraph init` subcommand, which writes (or updates)
// a srcgraph usage section in a CLAUDE.md file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, writeConfig bool

	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write a srcgraph usage section to a CLAUDE.md file",
		Long: `Write a srcgraph usage section to a CLAUDE.md file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md. With --write-config, a default
` + config.FileName + ` is also created next to it unless one already exists.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args, dryRun, writeConfig, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "also write a default "+config.FileName)
	return cmd
}

func runInit(args []string, dryRun, writeConfig bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if len(args) > 0 {
		path = args[0]
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote srcgraph section to %s\n", path)

	if writeConfig {
		cfgPath := filepath.Join(filepath.Dir(path), config.FileName)
		if _, err := os.Stat(cfgPath); err == nil {
			_, _ = fmt.Fprintf(stderr, "%s already exists, left unchanged\n", cfgPath)
			return nil
		}
		if err := config.WriteDefault(cfgPath); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "wrote default config to %s\n", cfgPath)
	}
	return nil
}

// generateSection returns the full sentinel-wrapped srcgraph documentation block.
func generateSection() string {
	body := `## srcgraph: Source Map

Run ` + "`srcgraph`" + ` via the Bash tool at the start of any task on an unfamiliar
Python, JavaScript or TypeScript codebase. It produces a ranked map of files,
functions, classes, dependencies and code metrics that replaces broad initial
exploration.

**Availability:** Check with ` + "`srcgraph --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
srcgraph                                    # current directory, all languages
srcgraph /path/to/repo                      # explicit path
srcgraph -l python,typescript               # filter by language
srcgraph -n 20                              # limit to top 20 files (large repos)
srcgraph --symbol Store                     # only definitions matching Store
srcgraph --cache .srcgraph-cache            # cache output (fast on repeat runs)
srcgraph --format json                      # machine-readable output
` + "```" + `

**Caching:** Use ` + "`--cache <file>`" + ` to avoid re-analyzing on every call. The
cache is keyed on file contents, so it never serves stale output. Add the
cache file to ` + "`.gitignore`" + `. A conventional path is ` + "`.srcgraph-cache`" + `.

**All flags:** ` + "`srcgraph --help`" + `

**How to use the output:**

1. **Read files in ranked order.** The ` + "`files`" + ` table is sorted by dependency
   centrality (most central first). Read from the top down.

2. **Use ` + "`functions`" + ` and ` + "`classes`" + ` instead of Grep to find definitions.**
   They list every definition with file and line number.

3. **Use ` + "`dependencies`" + ` to trace imports.** Internal rows point at files in
   the repository; external rows name third-party packages.

4. **Check ` + "`complexity`" + ` and ` + "`mi`" + ` before refactoring.** High complexity or a
   low maintainability index marks code that needs extra care.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
