// Package metrics computes line counts, cyclomatic complexity and the
// maintainability index.
package metrics

import (
	"strings"

	"github.com/phobologic/srcgraph/internal/model"
)

// CommentPrefixes are the tokens that mark a trimmed line as a comment.
var CommentPrefixes = []string{"#", "//", "/*", "*", "<!--"}

// CountLines classifies every line of content as blank, comment or code.
// A zero-byte input yields all-zero metrics.
func CountLines(content []byte) model.LineMetrics {
	var m model.LineMetrics
	if len(content) == 0 {
		return m
	}

	lines := strings.Split(string(content), "\n")
	// The empty segment after a final newline is not a line.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	m.Total = len(lines)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			m.Blank++
		case isComment(line):
			m.Comment++
		default:
			m.Code++
		}
	}
	m.CommentRatio = float64(m.Comment) / float64(max(1, m.Code+m.Comment))
	return m
}

func isComment(line string) bool {
	for _, p := range CommentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
