// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/srcgraph/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a RepoMap into TOON format. Files keep their RepoMap
// order; functions and classes follow file order, then declaration order.
// Function rows come from FileSummary.Functions only.
func Encode(rm *model.RepoMap) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(rm.RepoName)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(rm.Root)))

	var fileRows [][]string
	for i := range rm.Files {
		fi := &rm.Files[i]
		fileRows = append(fileRows, []string{
			fi.Path,
			fi.Language,
			fmt.Sprintf("%.4f", rm.Ranks[fi.Path]),
			strconv.Itoa(fi.Metrics.Total),
			strconv.Itoa(fi.Metrics.Code),
			strconv.Itoa(fi.Metrics.Comment),
			optionalInt(fi.Complexity),
			optionalFloat(fi.Maintainability),
		})
	}
	parts = append(parts, formatTabular("files",
		[]string{"path", "language", "rank", "lines", "code", "comments", "complexity", "mi"}, fileRows))

	var fnRows [][]string
	var classRows [][]string
	for i := range rm.Files {
		fi := &rm.Files[i]
		// Functions already holds methods, scoped to their class.
		for _, fn := range fi.Functions {
			fnRows = append(fnRows, functionRow(fi.Path, fn))
		}
		for _, c := range fi.Classes {
			methods := make([]string, len(c.Methods))
			for j, m := range c.Methods {
				methods[j] = m.Name
			}
			classRows = append(classRows, []string{
				fi.Path,
				c.QualifiedName(),
				c.Extends,
				strings.Join(methods, " "),
				strconv.Itoa(c.Line),
			})
		}
	}
	parts = append(parts, formatTabular("functions",
		[]string{"file", "name", "params", "line", "complexity"}, fnRows))
	parts = append(parts, formatTabular("classes",
		[]string{"file", "name", "extends", "methods", "line"}, classRows))

	var depRows [][]string
	for _, e := range rm.Edges {
		depRows = append(depRows, []string{e.Source, e.Target, string(e.Kind)})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "kind"}, depRows))

	if len(rm.Diagnostics) > 0 {
		var diagRows [][]string
		for _, d := range rm.Diagnostics {
			diagRows = append(diagRows, []string{d.Path, string(d.Kind), d.Message})
		}
		parts = append(parts, formatTabular("diagnostics", []string{"file", "kind", "message"}, diagRows))
	}

	return strings.Join(parts, "\n")
}

func functionRow(file string, fn model.FunctionFact) []string {
	return []string{
		file,
		fn.QualifiedName(),
		fn.ParamList(),
		strconv.Itoa(fn.Line),
		strconv.Itoa(fn.Complexity),
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
