package tree

import "fmt"

// WalkFunc is called for each node in pre-order. Returning false skips the
// node's children.
type WalkFunc func(n *Node, depth int) bool

// Walk visits root and its descendants depth-first in pre-order, failing
// with a *DepthError when nesting exceeds maxDepth.
func Walk(root *Node, maxDepth int, fn WalkFunc) error {
	if root == nil {
		return nil
	}
	return walk(root, 0, maxDepth, fn)
}

func walk(n *Node, depth, maxDepth int, fn WalkFunc) error {
	if err := CheckDepth(n, depth, maxDepth); err != nil {
		return err
	}
	if !fn(n, depth) {
		return nil
	}
	for _, c := range n.Children {
		if err := walk(c, depth+1, maxDepth, fn); err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns the leaf nodes of root in source order.
func Leaves(root *Node, maxDepth int) ([]*Node, error) {
	var leaves []*Node
	err := Walk(root, maxDepth, func(n *Node, _ int) bool {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves, err
}

// Count returns the number of nodes in root's subtree.
func Count(root *Node, maxDepth int) (int, error) {
	count := 0
	err := Walk(root, maxDepth, func(*Node, int) bool {
		count++
		return true
	})
	return count, err
}

// FindByID returns the first node in pre-order whose id equals id.
func FindByID(root *Node, id string, maxDepth int) (*Node, error) {
	var found *Node
	err := Walk(root, maxDepth, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("tree: %q: %w", id, ErrNodeNotFound)
	}
	return found, nil
}
