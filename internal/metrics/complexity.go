package metrics

import (
	"errors"
	"fmt"
	"math"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/srcgraph/internal/model"
)

var (
	// ErrDegenerateInput means there is no code to score.
	ErrDegenerateInput = errors.New("no code lines")

	// ErrNonFinite means the formula produced NaN or Inf.
	ErrNonFinite = errors.New("non-finite maintainability index")
)

// Cyclomatic returns 1 plus the number of nodes in node's subtree (node
// included) whose type is in decisions. Nested definitions count toward
// their enclosing function.
func Cyclomatic(node *sitter.Node, decisions map[string]struct{}) int {
	if node == nil {
		return 1
	}
	return 1 + countDecisions(node, decisions)
}

func countDecisions(node *sitter.Node, decisions map[string]struct{}) int {
	n := 0
	if _, ok := decisions[node.Type()]; ok {
		n++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			n += countDecisions(child, decisions)
		}
	}
	return n
}

// Maintainability computes the maintainability index on a 0..100 scale:
//
//	raw = 171 - 0.23*CC - 16.2*ln(code lines) + 50*sin(sqrt(2.4*comment ratio))
//	MI  = clamp(raw*100/171, 0, 100)
//
// MI never increases with complexity or code size and never decreases with
// comment ratio (the sine argument stays below pi/2 for ratios in [0, 1]).
func Maintainability(complexity int, m model.LineMetrics) (float64, error) {
	if m.Code <= 0 {
		return 0, ErrDegenerateInput
	}

	ratio := math.Min(math.Max(m.CommentRatio, 0), 1)
	raw := 171 -
		0.23*float64(complexity) -
		16.2*math.Log(float64(m.Code)) +
		50*math.Sin(math.Sqrt(2.4*ratio))

	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: complexity=%d code=%d", ErrNonFinite, complexity, m.Code)
	}

	mi := math.Min(math.Max(raw*100/171, 0), 100)
	return math.Round(mi*100) / 100, nil
}
