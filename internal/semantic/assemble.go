package semantic

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/scope"
	"github.com/jward/asgraph/internal/tree"
)

// Option configures a build.
type Option func(*builder)

// WithMaxDepth bounds traversal depth. Zero selects tree.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(b *builder) { b.maxDepth = n }
}

// WithLogger sets the logger for build diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) { b.logger = l }
}

// builder is the per-call state threaded through both passes. It is never
// reused.
type builder struct {
	cfg      *lang.Config
	maxDepth int
	logger   *slog.Logger

	// Flattened pre-order view of the tree. parent[i] is -1 for the root;
	// end[i] is one past the last descendant of i.
	flat   []*tree.Node
	parent []int
	end    []int

	// scopes[i] is the scope active at flat[i], set by pass 1 and read
	// verbatim by pass 2.
	scopes []scope.ID
	table  *scope.Table

	// Module-level tables: name -> defining node id.
	functions map[string]string
	classes   map[string]string
	imports   map[string]string

	contains []Edge
	pass1    []Edge
	pass2    []Edge
}

// Build constructs the semantic graph of root under cfg.
func Build(root *tree.Node, cfg *lang.Config, opts ...Option) (*Graph, error) {
	if root == nil {
		return nil, fmt.Errorf("semantic: build: nil tree: %w", tree.ErrNodeNotFound)
	}
	b := &builder{
		cfg:       cfg,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		table:     scope.NewTable(),
		functions: make(map[string]string),
		classes:   make(map[string]string),
		imports:   make(map[string]string),
	}
	for _, o := range opts {
		o(b)
	}

	if err := b.flatten(root); err != nil {
		return nil, fmt.Errorf("semantic: build: %w", err)
	}
	b.collect()
	b.resolve()

	g := b.assemble()
	b.logger.Debug("graph built",
		slog.String("language", cfg.Name),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
		slog.Int("scopes", b.table.Len()),
	)
	return g, nil
}

type frame struct {
	node   *tree.Node
	parent int
	depth  int
}

// flatten lays the tree out in pre-order with an explicit stack and emits
// one contains edge per parent-child pair.
func (b *builder) flatten(root *tree.Node) error {
	stack := []frame{{node: root, parent: -1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := tree.CheckDepth(f.node, f.depth, b.maxDepth); err != nil {
			return err
		}

		i := len(b.flat)
		b.flat = append(b.flat, f.node)
		b.parent = append(b.parent, f.parent)
		b.end = append(b.end, 0)
		if f.parent >= 0 {
			b.contains = append(b.contains, Edge{
				Source: b.flat[f.parent].ID(),
				Target: f.node.ID(),
				Kind:   Contains,
			})
		}
		for c := len(f.node.Children) - 1; c >= 0; c-- {
			stack = append(stack, frame{node: f.node.Children[c], parent: i, depth: f.depth + 1})
		}
	}

	// A node's subtree ends where its last child's subtree ends.
	for i := len(b.flat) - 1; i >= 0; i-- {
		if b.end[i] == 0 {
			b.end[i] = i + 1
		}
		if p := b.parent[i]; p >= 0 && b.end[p] < b.end[i] {
			b.end[p] = b.end[i]
		}
	}
	return nil
}

// assemble merges the edge streams in discovery order and indexes nodes.
func (b *builder) assemble() *Graph {
	g := &Graph{
		Language: b.cfg.Name,
		Nodes:    make([]NodeRecord, len(b.flat)),
		Edges:    make([]Edge, 0, len(b.contains)+len(b.pass1)+len(b.pass2)),
		Root:     b.flat[0].ID(),
	}
	for i, n := range b.flat {
		g.Nodes[i] = record(n)
	}
	g.Edges = append(g.Edges, b.contains...)
	g.Edges = append(g.Edges, b.pass1...)
	g.Edges = append(g.Edges, b.pass2...)
	g.reindex()
	return g
}
