// Package tree defines the language-independent node model that every
// analysis pass consumes. Nodes are produced by the parse package from a
// tree-sitter tree, but nothing here depends on tree-sitter.
package tree

import "fmt"

// DefaultMaxDepth bounds every recursive traversal over a tree.
const DefaultMaxDepth = 2048

// Point is a 0-based row/column position. Columns count bytes.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Node is a syntax node with its byte span, point span, source text and
// owned, ordered children. A node never points back to its parent.
type Node struct {
	Type       string  `json:"type"`
	Field      string  `json:"field,omitempty"`
	StartByte  int     `json:"start_byte"`
	EndByte    int     `json:"end_byte"`
	StartPoint Point   `json:"start_point"`
	EndPoint   Point   `json:"end_point"`
	Text       string  `json:"text"`
	Children   []*Node `json:"children,omitempty"`
}

// ID returns the node's deterministic identity.
func (n *Node) ID() string {
	return ID(n.Type, n.StartByte, n.EndByte)
}

// ID derives a node identity from its type and byte span. The same subtree
// parsed twice from the same text yields the same ids.
func ID(typ string, startByte, endByte int) string {
	return fmt.Sprintf("%s_%d_%d", typ, startByte, endByte)
}

// Child returns the first direct child whose type is one of types, or nil.
func (n *Node) Child(types ...string) *Node {
	for _, c := range n.Children {
		for _, t := range types {
			if c.Type == t {
				return c
			}
		}
	}
	return nil
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Intersects reports whether n's byte span overlaps [start, end). A
// zero-width range matches nodes whose span touches the offset.
func (n *Node) Intersects(start, end int) bool {
	if start == end {
		return n.StartByte <= start && start <= n.EndByte
	}
	return n.StartByte < end && start < n.EndByte
}

// Tree is one parsed generation of a source text.
type Tree struct {
	Language string `json:"language"`
	Root     *Node  `json:"root"`
	// HasErrors is set when the parser produced error nodes.
	HasErrors bool `json:"has_errors"`
}
