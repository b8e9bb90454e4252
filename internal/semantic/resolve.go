package semantic

import "github.com/jward/asgraph/internal/tree"

// resolve is pass 2. Calls are resolved against the module-level tables;
// bare identifiers outside definition positions are resolved through the
// scope chain recorded by pass 1.
func (b *builder) resolve() {
	// Callee identifiers already linked by a call edge.
	called := make(map[*tree.Node]bool)

	for i, n := range b.flat {
		if b.cfg.IsCall(n.Type) {
			if callee := b.callee(n); callee != nil && b.resolveCall(callee) {
				called[callee] = true
			}
			continue
		}
		if !b.cfg.IsIdentifier(n.Type) || called[n] {
			continue
		}
		if p := b.parent[i]; p >= 0 && b.cfg.Excluded(b.flat[p].Type, n.Field) {
			continue
		}
		target, _, ok := b.table.Lookup(b.scopes[i], n.Text)
		if !ok || target == n.ID() {
			continue
		}
		b.pass2 = append(b.pass2, Edge{Source: n.ID(), Target: target, Kind: References})
	}
}

// callee returns the first identifier child of a call. Member calls such
// as obj.method() have none.
func (b *builder) callee(call *tree.Node) *tree.Node {
	for _, c := range call.Children {
		if b.cfg.IsIdentifier(c.Type) {
			return c
		}
	}
	return nil
}

// resolveCall emits at most one edge for a callee. The function table wins
// over the import table.
func (b *builder) resolveCall(callee *tree.Node) bool {
	if target, ok := b.functions[callee.Text]; ok {
		b.pass2 = append(b.pass2, Edge{Source: callee.ID(), Target: target, Kind: Calls})
		return true
	}
	if target, ok := b.imports[callee.Text]; ok {
		b.pass2 = append(b.pass2, Edge{Source: callee.ID(), Target: target, Kind: CallsImport})
		return true
	}
	return false
}
