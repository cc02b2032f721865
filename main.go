// srcgraph analyzes the Python and JavaScript/TypeScript sources of a
// repository and prints a ranked dependency map in TOON or JSON format.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phobologic/srcgraph/internal/config"
	"github.com/phobologic/srcgraph/internal/discover"
	"github.com/phobologic/srcgraph/internal/engine"
	"github.com/phobologic/srcgraph/internal/model"
	"github.com/phobologic/srcgraph/internal/ranking"
	"github.com/phobologic/srcgraph/internal/toon"
)

var version = "dev"

const contextHeader = `# Repository Map

Files are ranked by dependency centrality, most central first. complexity is
cyclomatic complexity and mi the maintainability index (0-100); an empty cell
means the value was not computed for that file. External dependencies name
packages outside the repository.
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the raw flag values. Only flags the user set override the
// loaded configuration.
type options struct {
	configPath  string
	maxFiles    int
	langs       []string
	format      string
	cachePath   string
	maxFileSize int64
	workers     int
	exclude     []string
	text        bool
	skipTests   bool
	symbol      string
	file        string
	raw         bool
	verbose     bool
	showVersion bool
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "srcgraph [path]",
		Short: "Print a ranked source map of a repository",
		Long: `srcgraph summarizes every Python, JavaScript and TypeScript file under path
(default: the current directory): functions, classes, imports, line metrics,
cyclomatic complexity and maintainability index. It resolves imports between
files, ranks files by their position in the dependency graph and prints the
result in TOON (default) or JSON.

Settings are read from .srcgraph.yaml in path, then SRCGRAPH_* environment
variables (a .env file in the working directory is honored), then flags.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				_, _ = fmt.Fprintf(stdout, "srcgraph %s\n", version)
				return nil
			}
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return analyze(cmd, root, &opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: <path>/"+config.FileName+")")
	f.IntVarP(&opts.maxFiles, "max-files", "n", 0, "maximum number of files to include")
	f.StringSliceVarP(&opts.langs, "langs", "l", nil, "comma-separated languages to include")
	f.StringVar(&opts.format, "format", config.FormatTOON, "output format: toon or json")
	f.StringVar(&opts.cachePath, "cache", "", "cache file path")
	f.Int64Var(&opts.maxFileSize, "max-file-size", config.Default().MaxFileSize, "skip files larger than this many bytes (0 = no limit)")
	f.IntVar(&opts.workers, "workers", 0, "concurrent file tasks (0 = GOMAXPROCS)")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "glob patterns of files to skip (repeatable)")
	f.BoolVar(&opts.text, "text", false, "also report line metrics for other text files")
	f.BoolVar(&opts.skipTests, "skip-tests", false, "skip test files")
	f.StringVar(&opts.symbol, "symbol", "", "only show definitions whose name contains this string")
	f.StringVar(&opts.file, "file", "", "only show files whose path contains this string")
	f.BoolVar(&opts.raw, "raw", false, "omit the explanatory header")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every diagnostic")
	f.BoolVarP(&opts.showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

func analyze(cmd *cobra.Command, root string, opts *options, stdout, stderr io.Writer) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.NewLoader(root, opts.configPath).Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, opts)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(stderr, opts.verbose)

	entries, err := discover.Files(root, discover.Options{
		Languages:   cfg.Languages,
		Exclude:     cfg.Exclude,
		IncludeText: opts.text,
		SkipTests:   opts.skipTests,
	})
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no parseable files found")
	}

	files := discover.Load(root, entries, cfg.MaxFileSize, logger)
	if len(files) == 0 {
		return fmt.Errorf("no parseable files found (all skipped)")
	}

	// Filtered views are never cached.
	filtered := opts.symbol != "" || opts.file != ""
	useCache := cfg.Cache != "" && !filtered

	var key uint64
	if useCache {
		key = cacheKey(files, cfg, opts)
		if output, ok := readCache(cfg.Cache, key); ok {
			logger.Debug("cache hit", slog.String("cache", cfg.Cache))
			return writeOutput(stdout, output, cfg.Format, opts.raw)
		}
	}

	res, err := engine.Analyze(cmd.Context(), files, engine.Options{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}

	name := filepath.Base(root)
	rm := res.RepoMap(name, name)
	if opts.file != "" {
		rm = ranking.FilterByFile(rm, opts.file)
	}
	if opts.symbol != "" {
		rm = ranking.FilterBySymbol(rm, opts.symbol)
	}
	rm = ranking.SelectFiles(rm, cfg.MaxFiles)

	output, err := encode(rm, cfg.Format)
	if err != nil {
		return err
	}

	if useCache {
		if err := writeCache(cfg.Cache, key, output); err != nil {
			logger.Warn("cache not written", slog.String("cache", cfg.Cache), slog.Any("error", err))
		}
	}

	return writeOutput(stdout, output, cfg.Format, opts.raw)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) {
	f := cmd.Flags()
	if f.Changed("max-files") {
		cfg.MaxFiles = opts.maxFiles
	}
	if f.Changed("langs") {
		cfg.Languages = opts.langs
	}
	if f.Changed("format") {
		cfg.Format = strings.ToLower(opts.format)
	}
	if f.Changed("cache") {
		cfg.Cache = opts.cachePath
	}
	if f.Changed("max-file-size") {
		cfg.MaxFileSize = opts.maxFileSize
	}
	if f.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if f.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, opts.exclude...)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func encode(rm *model.RepoMap, format string) (string, error) {
	if format == config.FormatJSON {
		data, err := json.MarshalIndent(rm, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(data), nil
	}
	return toon.Encode(rm), nil
}

func writeOutput(w io.Writer, output, format string, raw bool) error {
	if !raw && format == config.FormatTOON {
		if _, err := fmt.Fprint(w, contextHeader+"\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, output)
	return err
}
