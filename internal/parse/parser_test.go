package parse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/tree"
)

func parsePython(t *testing.T, src string, opts ...Option) *tree.Tree {
	t.Helper()
	tr, err := New(lang.Default(), opts...).Parse(context.Background(), []byte(src), "python")
	require.NoError(t, err)
	return tr
}

func find(root *tree.Node, typ, text string) *tree.Node {
	var found *tree.Node
	_ = tree.Walk(root, 0, func(n *tree.Node, _ int) bool {
		if found == nil && n.Type == typ && n.Text == text {
			found = n
		}
		return found == nil
	})
	return found
}

func TestParse_Assignment(t *testing.T) {
	t.Parallel()
	tr := parsePython(t, "x = 1")
	assert.Equal(t, "python", tr.Language)
	assert.False(t, tr.HasErrors)

	root := tr.Root
	assert.Equal(t, "module", root.Type)
	require.Len(t, root.Children, 1)
	assign := root.Children[0].Children[0]
	assert.Equal(t, "assignment", assign.Type)

	var types []string
	for _, c := range assign.Children {
		types = append(types, c.Type)
	}
	assert.Equal(t, []string{"identifier", "=", "integer"}, types)

	lit := assign.Children[2]
	assert.Equal(t, "integer_4_5", lit.ID())
	assert.Equal(t, "1", lit.Text)
	assert.Equal(t, tree.Point{Row: 0, Column: 4}, lit.StartPoint)
}

func TestParse_Alias(t *testing.T) {
	t.Parallel()
	tr, err := New(lang.Default()).Parse(context.Background(), []byte("y = 2"), "py")
	require.NoError(t, err)
	assert.Equal(t, "python", tr.Language)
}

func TestParse_Points(t *testing.T) {
	t.Parallel()
	tr := parsePython(t, "def f(n):\n    return n")
	ret := find(tr.Root, "return_statement", "return n")
	require.NotNil(t, ret)
	assert.Equal(t, tree.Point{Row: 1, Column: 4}, ret.StartPoint)
	assert.Equal(t, tree.Point{Row: 1, Column: 12}, ret.EndPoint)
}

func TestParse_ProbedFields(t *testing.T) {
	t.Parallel()
	tr := parsePython(t, "g(key=val)\nobj.attr")

	key := find(tr.Root, "identifier", "key")
	require.NotNil(t, key)
	assert.Equal(t, "name", key.Field)

	val := find(tr.Root, "identifier", "val")
	require.NotNil(t, val)
	assert.Empty(t, val.Field, "only configured fields are recorded")

	attr := find(tr.Root, "identifier", "attr")
	require.NotNil(t, attr)
	assert.Equal(t, "attribute", attr.Field)

	obj := find(tr.Root, "identifier", "obj")
	require.NotNil(t, obj)
	assert.Empty(t, obj.Field)
}

func TestParse_SyntaxErrorsAreNotFatal(t *testing.T) {
	t.Parallel()
	tr := parsePython(t, "def (:\n  x = = 1")
	assert.True(t, tr.HasErrors)
	assert.NotNil(t, tr.Root)
}

func TestParse_Unsupported(t *testing.T) {
	t.Parallel()
	_, err := New(lang.Default()).Parse(context.Background(), []byte("x"), "cobol")
	require.Error(t, err)
	assert.ErrorIs(t, err, lang.ErrUnsupportedLanguage)
}

func TestParse_DepthLimit(t *testing.T) {
	t.Parallel()
	src := "x = " + strings.Repeat("(", 40) + "1" + strings.Repeat(")", 40)
	_, err := New(lang.Default(), WithMaxDepth(16)).Parse(context.Background(), []byte(src), "python")
	require.Error(t, err)
	assert.ErrorIs(t, err, tree.ErrDepthLimitExceeded)

	parsePython(t, src)
}

func TestParse_OtherLanguages(t *testing.T) {
	t.Parallel()
	p := New(lang.Default())
	cases := map[string]string{
		"javascript": "function f(a) { return a; }",
		"typescript": "function f(a: number): number { return a; }",
		"go":         "package main\nfunc f(a int) int { return a }",
	}
	for name, src := range cases {
		tr, err := p.Parse(context.Background(), []byte(src), name)
		require.NoError(t, err, name)
		assert.False(t, tr.HasErrors, name)
		assert.Equal(t, name, tr.Language)
	}
}

func TestSupported(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"go", "javascript", "python", "typescript"}, Supported(lang.Default()))
}
