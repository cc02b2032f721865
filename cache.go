package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/phobologic/srcgraph/internal/config"
	"github.com/phobologic/srcgraph/internal/model"
)

const cachePrefix = "srcgraph-cache "

// cacheKey hashes everything that affects the cached output: the binary
// version, output-shaping settings and the path and content of every file.
func cacheKey(files []model.SourceFile, cfg *config.Config, opts *options) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(version)
	_, _ = fmt.Fprintf(d, "\x00%s\x00%d\x00%d\x00%t\x00%t\x00%s\x00%s\x00",
		cfg.Format, cfg.MaxFiles, cfg.MaxFileSize, opts.text, opts.skipTests,
		strings.Join(cfg.Languages, ","), strings.Join(cfg.Exclude, ","))
	for _, f := range files {
		_, _ = d.WriteString(f.Path)
		_, _ = d.Write([]byte{0})
		_, _ = d.Write(f.Content)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// readCache returns the cached output when the file exists and was written
// for key.
func readCache(path string, key uint64) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	header, body, ok := strings.Cut(string(data), "\n")
	if !ok || !strings.HasPrefix(header, cachePrefix) {
		return "", false
	}
	stored, err := strconv.ParseUint(strings.TrimPrefix(header, cachePrefix), 16, 64)
	if err != nil || stored != key {
		return "", false
	}
	return body, true
}

func writeCache(path string, key uint64, output string) error {
	data := fmt.Sprintf("%s%016x\n%s", cachePrefix, key, output)
	return os.WriteFile(path, []byte(data), 0o644)
}
