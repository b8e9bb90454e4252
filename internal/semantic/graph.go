// Package semantic builds the abstract semantic graph: the syntax tree's
// nodes plus containment, call, reference and control-flow edges.
//
// A build runs two pre-order passes over one flattened tree. Pass 1 assigns
// every node a scope and collects definitions; pass 2 resolves calls and
// references against those scopes without rebuilding them.
package semantic

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jward/asgraph/internal/tree"
)

// ErrInvalidGraph is returned by Validate.
var ErrInvalidGraph = errors.New("invalid graph")

// EdgeKind is the relation an edge expresses.
type EdgeKind string

const (
	Contains    EdgeKind = "contains"
	Calls       EdgeKind = "calls"
	CallsImport EdgeKind = "calls_import"
	References  EdgeKind = "references"
	ControlFlow EdgeKind = "control_flow"
)

// Edge links two node ids.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"type"`
}

// NodeRecord is the flat form of a tree node in a graph. Lines and columns
// are 0-based.
type NodeRecord struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

func record(n *tree.Node) NodeRecord {
	return NodeRecord{
		ID:        n.ID(),
		Type:      n.Type,
		Text:      n.Text,
		StartByte: n.StartByte,
		EndByte:   n.EndByte,
		StartLine: n.StartPoint.Row,
		StartCol:  n.StartPoint.Column,
		EndLine:   n.EndPoint.Row,
		EndCol:    n.EndPoint.Column,
	}
}

// Graph is the assembled result of one build. Nodes are in pre-order.
type Graph struct {
	Language string       `json:"language"`
	Nodes    []NodeRecord `json:"nodes"`
	Edges    []Edge       `json:"edges"`
	Root     string       `json:"root"`

	index map[string]int
}

func (g *Graph) reindex() {
	g.index = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := g.index[n.ID]; !dup {
			g.index[n.ID] = i
		}
	}
}

// UnmarshalJSON restores the id index along with the exported fields.
func (g *Graph) UnmarshalJSON(data []byte) error {
	type plain Graph
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Graph(p)
	g.reindex()
	return nil
}

// Node returns the record for id. Duplicate ids resolve to the first node
// in pre-order.
func (g *Graph) Node(id string) (NodeRecord, error) {
	if g.index == nil {
		g.reindex()
	}
	i, ok := g.index[id]
	if !ok {
		return NodeRecord{}, fmt.Errorf("semantic: %q: %w", id, tree.ErrNodeNotFound)
	}
	return g.Nodes[i], nil
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, err := g.Node(id)
	return err == nil
}

// EdgesOf returns the edges of the given kind in discovery order.
func (g *Graph) EdgesOf(kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges whose source is id.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that every edge endpoint is a node and that no
// references edge points at its own source.
func (g *Graph) Validate() error {
	if !g.Has(g.Root) {
		return fmt.Errorf("semantic: root %q: %w", g.Root, ErrInvalidGraph)
	}
	for i, e := range g.Edges {
		if !g.Has(e.Source) {
			return fmt.Errorf("semantic: edge %d: unknown source %q: %w", i, e.Source, ErrInvalidGraph)
		}
		if !g.Has(e.Target) {
			return fmt.Errorf("semantic: edge %d: unknown target %q: %w", i, e.Target, ErrInvalidGraph)
		}
		if e.Kind == References && e.Source == e.Target {
			return fmt.Errorf("semantic: edge %d: self reference at %q: %w", i, e.Source, ErrInvalidGraph)
		}
	}
	return nil
}
