// Package position maps a row/column point to the most specific node that
// contains it.
package position

import (
	"fmt"

	"github.com/jward/asgraph/internal/tree"
)

// Contains reports whether p lies within n's point span. Column bounds
// apply only on the node's first and last rows and are inclusive.
func Contains(n *tree.Node, p tree.Point) bool {
	if p.Row < n.StartPoint.Row || p.Row > n.EndPoint.Row {
		return false
	}
	if p.Row == n.StartPoint.Row && p.Column < n.StartPoint.Column {
		return false
	}
	if p.Row == n.EndPoint.Row && p.Column > n.EndPoint.Column {
		return false
	}
	return true
}

// NodeAt returns the deepest node containing (line, column), both 0-based.
// When several children match, the last one wins.
func NodeAt(root *tree.Node, line, column, maxDepth int) (*tree.Node, error) {
	p := tree.Point{Row: line, Column: column}
	if root == nil || !Contains(root, p) {
		return nil, fmt.Errorf("position: %d:%d: %w", line, column, tree.ErrNodeNotFound)
	}

	n := root
	for depth := 0; ; depth++ {
		if err := tree.CheckDepth(n, depth, maxDepth); err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
		var next *tree.Node
		for _, c := range n.Children {
			if Contains(c, p) {
				next = c
			}
		}
		if next == nil {
			return n, nil
		}
		n = next
	}
}

// Path returns the chain of nodes from root down to the node at (line,
// column).
func Path(root *tree.Node, line, column, maxDepth int) ([]*tree.Node, error) {
	target, err := NodeAt(root, line, column, maxDepth)
	if err != nil {
		return nil, err
	}
	p := tree.Point{Row: line, Column: column}
	path := []*tree.Node{root}
	for n := root; n != target; {
		var next *tree.Node
		for _, c := range n.Children {
			if Contains(c, p) {
				next = c
			}
		}
		path = append(path, next)
		n = next
	}
	return path, nil
}
