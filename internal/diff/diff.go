// Package diff compares two parsed generations of a source text and
// reports which nodes of the new tree represent the edits.
//
// Each edit range selects exactly one node: the deepest node covering it,
// or the lowest common ancestor when the range spans several siblings.
package diff

import (
	"errors"
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/jward/asgraph/internal/tree"
)

// ErrMissingPriorState is returned when there is no comparable old tree.
var ErrMissingPriorState = errors.New("missing prior state")

// Range is a byte span of the new tree that differs from the old one.
type Range struct {
	StartByte  int        `json:"start_byte"`
	EndByte    int        `json:"end_byte"`
	StartPoint tree.Point `json:"start_point"`
	EndPoint   tree.Point `json:"end_point"`
}

// ChangeSet is the result of a diff.
type ChangeSet struct {
	EditRanges   []Range      `json:"changed_ranges"`
	ChangedNodes []*tree.Node `json:"changed_nodes"`
}

type options struct {
	maxDepth int
	ranges   []Range
	given    bool
}

// Option configures Compute.
type Option func(*options)

// WithMaxDepth bounds traversal depth. Zero selects tree.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithRanges supplies parser-reported edit ranges instead of deriving them.
func WithRanges(ranges []Range) Option {
	return func(o *options) {
		o.ranges = ranges
		o.given = true
	}
}

// Compute diffs prev against cur.
func Compute(prev, cur *tree.Tree, opts ...Option) (*ChangeSet, error) {
	if prev == nil || prev.Root == nil {
		return nil, fmt.Errorf("diff: no previous tree: %w", ErrMissingPriorState)
	}
	if cur == nil || cur.Root == nil {
		return nil, fmt.Errorf("diff: no current tree: %w", tree.ErrNodeNotFound)
	}
	if prev.Language != cur.Language {
		return nil, fmt.Errorf("diff: previous tree is %s, current is %s: %w",
			prev.Language, cur.Language, ErrMissingPriorState)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ranges := o.ranges
	if !o.given {
		var err error
		ranges, err = EditRanges(prev.Root, cur.Root, o.maxDepth)
		if err != nil {
			return nil, fmt.Errorf("diff: edit ranges: %w", err)
		}
	}
	nodes, err := ChangedNodes(cur.Root, ranges, o.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("diff: changed nodes: %w", err)
	}
	if ranges == nil {
		ranges = []Range{}
	}
	return &ChangeSet{EditRanges: ranges, ChangedNodes: nodes}, nil
}

// EditRanges derives edit ranges by matching the leaf token sequences of
// both trees. Each differing run of tokens yields one range in new-tree
// coordinates; a run present only in the old tree yields a zero-width range
// where it was removed.
func EditRanges(prev, cur *tree.Node, maxDepth int) ([]Range, error) {
	oldLeaves, err := tree.Leaves(prev, maxDepth)
	if err != nil {
		return nil, err
	}
	newLeaves, err := tree.Leaves(cur, maxDepth)
	if err != nil {
		return nil, err
	}

	m := difflib.NewMatcherWithJunk(tokens(oldLeaves), tokens(newLeaves), false, nil)
	var out []Range
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		if op.J1 < op.J2 {
			first, last := newLeaves[op.J1], newLeaves[op.J2-1]
			out = append(out, Range{
				StartByte:  first.StartByte,
				EndByte:    last.EndByte,
				StartPoint: first.StartPoint,
				EndPoint:   last.EndPoint,
			})
			continue
		}
		out = append(out, insertionPoint(newLeaves, op.J1, cur))
	}
	return out, nil
}

// insertionPoint returns the zero-width range before leaves[j].
func insertionPoint(leaves []*tree.Node, j int, root *tree.Node) Range {
	switch {
	case j < len(leaves):
		l := leaves[j]
		return Range{StartByte: l.StartByte, EndByte: l.StartByte, StartPoint: l.StartPoint, EndPoint: l.StartPoint}
	case j > 0:
		l := leaves[j-1]
		return Range{StartByte: l.EndByte, EndByte: l.EndByte, StartPoint: l.EndPoint, EndPoint: l.EndPoint}
	default:
		return Range{StartByte: root.StartByte, EndByte: root.StartByte, StartPoint: root.StartPoint, EndPoint: root.StartPoint}
	}
}

func tokens(leaves []*tree.Node) []string {
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Type + "\x00" + l.Text
	}
	return out
}

// ChangedNodes selects one node per range and returns them de-duplicated
// in pre-order.
func ChangedNodes(root *tree.Node, ranges []Range, maxDepth int) ([]*tree.Node, error) {
	picked := make(map[*tree.Node]bool)
	for _, r := range ranges {
		n, err := cover(root, r, maxDepth)
		if err != nil {
			return nil, err
		}
		if n != nil {
			picked[n] = true
		}
	}

	out := make([]*tree.Node, 0, len(picked))
	if len(picked) == 0 {
		return out, nil
	}
	err := tree.Walk(root, maxDepth, func(n *tree.Node, _ int) bool {
		if picked[n] {
			out = append(out, n)
		}
		return len(out) < len(picked)
	})
	return out, err
}

// cover descends from root while exactly one child intersects r. It stops
// at a node with no intersecting child, or at the common ancestor of
// several. A zero-width range only enters a child that strictly contains
// its offset, so an edit on a boundary belongs to the enclosing node.
func cover(root *tree.Node, r Range, maxDepth int) (*tree.Node, error) {
	if !root.Intersects(r.StartByte, r.EndByte) {
		return nil, nil
	}
	n := root
	for depth := 0; ; depth++ {
		if err := tree.CheckDepth(n, depth, maxDepth); err != nil {
			return nil, err
		}
		var next *tree.Node
		hits := 0
		for _, c := range n.Children {
			if enters(c, r) {
				hits++
				next = c
			}
		}
		if hits != 1 {
			return n, nil
		}
		n = next
	}
}

func enters(c *tree.Node, r Range) bool {
	if r.StartByte == r.EndByte {
		return c.StartByte < r.StartByte && r.StartByte < c.EndByte
	}
	return c.Intersects(r.StartByte, r.EndByte)
}

// Unified renders a line-based unified diff of two source texts.
func Unified(prevName, curName string, prev, cur []byte) (string, error) {
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(prev)),
		B:        splitLinesKeepNL(string(cur)),
		FromFile: prevName,
		ToFile:   curName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(u)
}

func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
