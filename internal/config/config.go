// Package config loads srcgraph settings from defaults, an optional
// .srcgraph.yaml file and SRCGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/phobologic/srcgraph/internal/lang"
)

// FileName is the config file looked up in the analyzed root.
const FileName = ".srcgraph.yaml"

// EnvPrefix prefixes every environment override (SRCGRAPH_MAX_FILES, ...).
const EnvPrefix = "SRCGRAPH"

// Output formats.
const (
	FormatTOON = "toon"
	FormatJSON = "json"
)

var (
	// ErrInvalidLimit indicates a negative worker, file or size limit.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidLanguage indicates a language that is not registered.
	ErrInvalidLanguage = errors.New("unsupported language")

	// ErrInvalidPattern indicates a malformed exclude glob.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

// Config is the complete srcgraph configuration.
type Config struct {
	Workers     int      `yaml:"workers" mapstructure:"workers"`             // concurrent file tasks, 0 = GOMAXPROCS
	MaxFiles    int      `yaml:"max_files" mapstructure:"max_files"`         // top-ranked files to report, 0 = all
	MaxFileSize int64    `yaml:"max_file_size" mapstructure:"max_file_size"` // skip larger files (bytes), 0 = no limit
	Format      string   `yaml:"format" mapstructure:"format"`               // "toon" or "json"
	Languages   []string `yaml:"languages" mapstructure:"languages"`         // empty = all registered
	Exclude     []string `yaml:"exclude" mapstructure:"exclude"`             // doublestar globs
	Cache       string   `yaml:"cache" mapstructure:"cache"`                 // output cache file, "" = off
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Workers:     0,
		MaxFiles:    0,
		MaxFileSize: 1_000_000,
		Format:      FormatTOON,
		Languages:   []string{},
		Exclude:     []string{},
	}
}

// Loader loads configuration for one analyzed root.
type Loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that reads rootDir/.srcgraph.yaml, or
// configFile when it is non-empty.
func NewLoader(rootDir, configFile string) *Loader {
	return &Loader{rootDir: rootDir, configFile: configFile}
}

// Load merges, lowest to highest priority: defaults, the config file,
// SRCGRAPH_* environment variables. A missing default config file is not an
// error; a missing explicit one is.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigFile(filepath.Join(l.rootDir, FileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || (!errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.Languages = splitList(cfg.Languages)
	cfg.Exclude = splitList(cfg.Exclude)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workers", d.Workers)
	v.SetDefault("max_files", d.MaxFiles)
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("format", d.Format)
	v.SetDefault("languages", d.Languages)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("cache", d.Cache)
}

// splitList flattens comma-separated entries, as supplied through env vars.
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks limits, the output format, language names and exclude
// patterns, reporting every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidLimit, cfg.Workers))
	}
	if cfg.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("%w: max_files must be >= 0, got %d", ErrInvalidLimit, cfg.MaxFiles))
	}
	if cfg.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size must be >= 0, got %d", ErrInvalidLimit, cfg.MaxFileSize))
	}

	switch strings.ToLower(cfg.Format) {
	case FormatTOON, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidFormat, FormatTOON, FormatJSON, cfg.Format))
	}

	for _, name := range cfg.Languages {
		if _, ok := lang.Languages[name]; !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrInvalidLanguage, name))
		}
	}

	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern))
		}
	}

	return errors.Join(errs...)
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
