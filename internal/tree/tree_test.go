package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds the tree for "x = 1" by hand.
func sample() *Node {
	ident := &Node{Type: "identifier", Text: "x", StartByte: 0, EndByte: 1, EndPoint: Point{0, 1}}
	eq := &Node{Type: "=", Text: "=", StartByte: 2, EndByte: 3, StartPoint: Point{0, 2}, EndPoint: Point{0, 3}}
	lit := &Node{Type: "integer", Text: "1", StartByte: 4, EndByte: 5, StartPoint: Point{0, 4}, EndPoint: Point{0, 5}}
	assign := &Node{Type: "assignment", Text: "x = 1", EndByte: 5, EndPoint: Point{0, 5}, Children: []*Node{ident, eq, lit}}
	stmt := &Node{Type: "expression_statement", Text: "x = 1", EndByte: 5, EndPoint: Point{0, 5}, Children: []*Node{assign}}
	return &Node{Type: "module", Text: "x = 1", EndByte: 5, EndPoint: Point{0, 5}, Children: []*Node{stmt}}
}

func deepChain(depth int) *Node {
	root := &Node{Type: "module", EndByte: depth}
	cur := root
	for i := 0; i < depth; i++ {
		next := &Node{Type: "parenthesized_expression", StartByte: i, EndByte: depth - i}
		cur.Children = []*Node{next}
		cur = next
	}
	return root
}

func TestID_Deterministic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "identifier_3_7", ID("identifier", 3, 7))

	a, b := sample(), sample()
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.Children[0].Children[0].Children[2].ID(), "integer_4_5")
}

func TestChild(t *testing.T) {
	t.Parallel()
	assign := sample().Children[0].Children[0]
	require.NotNil(t, assign.Child("integer", "float"))
	assert.Equal(t, "1", assign.Child("integer").Text)
	assert.Nil(t, assign.Child("string"))
}

func TestIntersects(t *testing.T) {
	t.Parallel()
	n := &Node{StartByte: 4, EndByte: 8}

	tests := []struct {
		start, end int
		want       bool
	}{
		{0, 4, false},
		{0, 5, true},
		{7, 9, true},
		{8, 9, false},
		{5, 6, true},
		{4, 4, true},
		{8, 8, true},
		{9, 9, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Intersects(tt.start, tt.end), "range [%d,%d)", tt.start, tt.end)
	}
}

func TestWalk_PreOrder(t *testing.T) {
	t.Parallel()
	var types []string
	err := Walk(sample(), 0, func(n *Node, _ int) bool {
		types = append(types, n.Type)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"module", "expression_statement", "assignment", "identifier", "=", "integer"}, types)
}

func TestWalk_SkipChildren(t *testing.T) {
	t.Parallel()
	count := 0
	err := Walk(sample(), 0, func(n *Node, _ int) bool {
		count++
		return n.Type != "expression_statement"
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWalk_DepthLimit(t *testing.T) {
	t.Parallel()
	err := Walk(deepChain(50), 10, func(*Node, int) bool { return true })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDepthLimitExceeded))

	var de *DepthError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 10, de.Limit)

	require.NoError(t, Walk(deepChain(50), 100, func(*Node, int) bool { return true }))
}

func TestLeavesAndCount(t *testing.T) {
	t.Parallel()
	leaves, err := Leaves(sample(), 0)
	require.NoError(t, err)
	require.Len(t, leaves, 3)
	assert.Equal(t, "x", leaves[0].Text)
	assert.Equal(t, "1", leaves[2].Text)

	n, err := Count(sample(), 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestFindByID(t *testing.T) {
	t.Parallel()
	n, err := FindByID(sample(), "integer_4_5", 0)
	require.NoError(t, err)
	assert.Equal(t, "1", n.Text)

	_, err = FindByID(sample(), "integer_9_9", 0)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
