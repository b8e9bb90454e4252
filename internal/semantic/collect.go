package semantic

import (
	"strings"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/scope"
	"github.com/jward/asgraph/internal/tree"
)

// collect is pass 1. It walks the flattened tree once, annotating every
// node with its scope, registering definitions and emitting control-flow
// edges.
func (b *builder) collect() {
	b.scopes = make([]scope.ID, len(b.flat))
	tracker := scope.NewTracker(b.table, b.cfg)

	// Exclusive end indices of the subtrees whose scopes are open.
	var open []int
	for i, n := range b.flat {
		for len(open) > 0 && open[len(open)-1] <= i {
			open = open[:len(open)-1]
			tracker.Leave()
		}
		id, opened := tracker.Enter(n)
		if opened {
			open = append(open, b.end[i])
		}
		b.scopes[i] = id

		if opened {
			b.defineParameters(n, id)
		}
		b.define(n, id)
	}
}

func (b *builder) define(n *tree.Node, s scope.ID) {
	cfg := b.cfg
	switch {
	case cfg.IsFunction(n.Type):
		if name := b.nameOf(n); name != "" {
			b.functions[name] = n.ID()
		}
	case cfg.IsClass(n.Type):
		if name := b.nameOf(n); name != "" {
			b.classes[name] = n.ID()
		}
	case cfg.IsImport(n.Type):
		b.defineImports(n)
	}

	if sep, ok := cfg.BindingSeparator(n.Type); ok {
		for _, target := range bindingTargets(n, sep) {
			b.defineTargets(target, s)
		}
	}

	if cfg.IsControlFlow(n.Type) {
		for _, c := range n.Children {
			if cfg.IsBody(c.Type) {
				b.pass1 = append(b.pass1, Edge{Source: n.ID(), Target: c.ID(), Kind: ControlFlow})
				break
			}
		}
	}
}

// nameOf returns the text of a definition's first name-typed child.
func (b *builder) nameOf(n *tree.Node) string {
	for _, c := range n.Children {
		if b.cfg.IsNameType(c.Type) {
			return c.Text
		}
	}
	return ""
}

// bindingTargets returns the children before the first separator. A
// separator in first position does not split.
func bindingTargets(n *tree.Node, sep string) []*tree.Node {
	for i, c := range n.Children {
		if i > 0 && c.Type == sep {
			return n.Children[:i]
		}
	}
	return nil
}

// defineTargets registers identifier targets, descending through
// unpacking patterns.
func (b *builder) defineTargets(n *tree.Node, s scope.ID) {
	switch {
	case b.cfg.IsIdentifier(n.Type):
		b.table.Define(s, n.Text, n.ID())
	case b.cfg.IsUnpacking(n.Type):
		for _, c := range n.Children {
			b.defineTargets(c, s)
		}
	}
}

// defineParameters registers the parameters of a scope-opening node in the
// scope it opened.
func (b *builder) defineParameters(n *tree.Node, s scope.ID) {
	for _, list := range n.Children {
		if !b.cfg.IsParameterList(list.Type) {
			continue
		}
		for _, p := range list.Children {
			b.defineParameter(p, s)
		}
	}
}

func (b *builder) defineParameter(p *tree.Node, s scope.ID) {
	if b.cfg.IsIdentifier(p.Type) {
		b.table.Define(s, p.Text, p.ID())
		return
	}
	switch b.cfg.WrapperMode(p.Type) {
	case lang.WrapperFirst:
		for _, c := range p.Children {
			if b.cfg.IsIdentifier(c.Type) {
				b.table.Define(s, c.Text, c.ID())
				return
			}
		}
	case lang.WrapperAll:
		for _, c := range p.Children {
			if b.cfg.IsIdentifier(c.Type) {
				b.table.Define(s, c.Text, c.ID())
			}
		}
	}
}

// defineImports registers imported names. Alias productions contribute
// their last name; plain import names contribute their full text.
func (b *builder) defineImports(n *tree.Node) {
	for _, c := range n.Children {
		switch {
		case b.cfg.IsImportAlias(c.Type):
			var alias *tree.Node
			for _, cc := range c.Children {
				if b.cfg.IsNameType(cc.Type) {
					alias = cc
				}
			}
			if alias != nil {
				b.imports[alias.Text] = alias.ID()
			}
		case b.cfg.IsImportName(c.Type):
			name := strings.Trim(c.Text, "\"'`")
			if name != "" {
				b.imports[name] = c.ID()
			}
		default:
			b.defineImports(c)
		}
	}
}
