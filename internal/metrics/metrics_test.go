package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/srcgraph/internal/lang"
	"github.com/phobologic/srcgraph/internal/model"
)

func TestCountLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    model.LineMetrics
	}{
		{
			name: "empty",
			want: model.LineMetrics{},
		},
		{
			name:    "code only",
			content: "x = 1\ny = 2\n",
			want:    model.LineMetrics{Total: 2, Code: 2, CommentRatio: 0},
		},
		{
			name:    "mixed",
			content: "# header\n\nx = 1\n  // note\n/* block\n * more\n<!-- html -->\ny()",
			want:    model.LineMetrics{Total: 8, Code: 2, Comment: 5, Blank: 1, CommentRatio: 5.0 / 7.0},
		},
		{
			name:    "blank only",
			content: "\n\n   \n",
			want:    model.LineMetrics{Total: 3, Blank: 3},
		},
		{
			name:    "comments only",
			content: "# a\n# b",
			want:    model.LineMetrics{Total: 2, Comment: 2, CommentRatio: 1},
		},
		{
			name:    "crlf",
			content: "a\r\n\r\n# c\r\n",
			want:    model.LineMetrics{Total: 3, Code: 1, Comment: 1, Blank: 1, CommentRatio: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CountLines([]byte(tt.content))
			assert.Equal(t, tt.want.Total, got.Total, "total")
			assert.Equal(t, tt.want.Code, got.Code, "code")
			assert.Equal(t, tt.want.Comment, got.Comment, "comment")
			assert.Equal(t, tt.want.Blank, got.Blank, "blank")
			assert.InDelta(t, tt.want.CommentRatio, got.CommentRatio, 1e-9, "ratio")
		})
	}
}

func TestMaintainabilityDegenerate(t *testing.T) {
	t.Parallel()

	_, err := Maintainability(1, model.LineMetrics{})
	require.ErrorIs(t, err, ErrDegenerateInput)

	_, err = Maintainability(1, model.LineMetrics{Total: 3, Comment: 3, CommentRatio: 1})
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestMaintainabilityRange(t *testing.T) {
	t.Parallel()

	mi, err := Maintainability(1, model.LineMetrics{Code: 1})
	require.NoError(t, err)
	assert.InDelta(t, 99.87, mi, 0.001)

	mi, err = Maintainability(5000, model.LineMetrics{Code: 100000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, mi)
}

func TestMaintainabilityMonotonic(t *testing.T) {
	t.Parallel()

	base := model.LineMetrics{Code: 200, Comment: 20, CommentRatio: 20.0 / 220.0}
	mi := func(cc int, m model.LineMetrics) float64 {
		t.Helper()
		v, err := Maintainability(cc, m)
		require.NoError(t, err)
		return v
	}

	ref := mi(10, base)

	t.Run("complexity lowers", func(t *testing.T) {
		assert.Less(t, mi(60, base), ref)
	})

	t.Run("size lowers", func(t *testing.T) {
		bigger := base
		bigger.Code = 2000
		assert.Less(t, mi(10, bigger), ref)
	})

	t.Run("comments raise", func(t *testing.T) {
		commented := base
		commented.CommentRatio = 0.4
		assert.Greater(t, mi(10, commented), ref)
	})

	t.Run("ratio sweep never decreases", func(t *testing.T) {
		prev := -1.0
		for r := 0.0; r <= 1.0; r += 0.05 {
			m := base
			m.CommentRatio = r
			v := mi(10, m)
			assert.GreaterOrEqual(t, v, prev, "ratio %.2f", r)
			prev = v
		}
	})
}

func TestCyclomatic(t *testing.T) {
	t.Parallel()

	py := lang.Languages["python"]
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"straight line", "def f():\n    return 1\n", 1},
		{"if elif", "def f(x):\n    if x:\n        pass\n    elif x > 1:\n        pass\n    else:\n        pass\n", 3},
		{"loops", "def f(xs):\n    for x in xs:\n        while x:\n            x -= 1\n", 3},
		{"boolean", "def f(a, b, c):\n    return a and b or c\n", 3},
		{"except", "def f():\n    try:\n        g()\n    except ValueError:\n        pass\n    except KeyError:\n        pass\n", 3},
		{"comprehension", "def f(xs):\n    return [x for x in xs if x]\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := py.NewParser()
			defer p.Close()
			tree, err := p.ParseCtx(context.Background(), nil, []byte(tt.source))
			require.NoError(t, err)
			defer tree.Close()

			fn := tree.RootNode().NamedChild(0)
			require.Equal(t, "function_definition", fn.Type())
			assert.Equal(t, tt.want, Cyclomatic(fn, py.DecisionTypes))
		})
	}
}

func TestCyclomaticNil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, Cyclomatic(nil, nil))
}
