// Package scope tracks lexical scopes during a pre-order traversal and
// resolves names through the scope chain.
//
// A Table is built fresh for every analysis; nothing here is shared between
// calls.
package scope

import "github.com/jward/asgraph/internal/tree"

// ID identifies a scope within one Table.
type ID int

const (
	// Global is the root scope every chain terminates at.
	Global ID = 0
	// None is the parent of Global.
	None ID = -1
)

// KindGlobal labels the root scope.
const KindGlobal = "global"

// Scope is a lexical region with its own symbol table. Parent is a
// back-reference by id.
type Scope struct {
	ID      ID
	Parent  ID
	Kind    string
	Owner   string            // id of the node that opened the scope; empty for Global
	Symbols map[string]string // name -> defining node id
}

// Table owns every scope created during one traversal.
type Table struct {
	scopes []*Scope
}

// NewTable returns a table holding only the global scope.
func NewTable() *Table {
	return &Table{scopes: []*Scope{{
		ID:      Global,
		Parent:  None,
		Kind:    KindGlobal,
		Symbols: make(map[string]string),
	}}}
}

// New creates a scope whose parent is parent.
func (t *Table) New(parent ID, kind, owner string) ID {
	id := ID(len(t.scopes))
	t.scopes = append(t.scopes, &Scope{
		ID:      id,
		Parent:  parent,
		Kind:    kind,
		Owner:   owner,
		Symbols: make(map[string]string),
	})
	return id
}

// Get returns the scope with the given id, or nil.
func (t *Table) Get(id ID) *Scope {
	if id < 0 || int(id) >= len(t.scopes) {
		return nil
	}
	return t.scopes[id]
}

// Len returns the number of scopes including Global.
func (t *Table) Len() int { return len(t.scopes) }

// Define binds name to nodeID in scope id. A later definition of the same
// name in the same scope replaces the earlier one.
func (t *Table) Define(id ID, name, nodeID string) {
	if s := t.Get(id); s != nil && name != "" {
		s.Symbols[name] = nodeID
	}
}

// Lookup walks the chain from scope id outward and returns the first
// binding of name, along with the scope it was found in.
func (t *Table) Lookup(id ID, name string) (string, ID, bool) {
	for s := t.Get(id); s != nil; s = t.Get(s.Parent) {
		if target, ok := s.Symbols[name]; ok {
			return target, s.ID, true
		}
	}
	return "", None, false
}

// Kinds decides which node types open a scope.
type Kinds interface {
	ScopeKind(nodeType string) (string, bool)
}

// Tracker maintains the scope stack during a pre-order walk.
type Tracker struct {
	table *Table
	kinds Kinds
	stack []ID
}

// NewTracker starts a tracker at the global scope of table.
func NewTracker(table *Table, kinds Kinds) *Tracker {
	return &Tracker{table: table, kinds: kinds, stack: []ID{Global}}
}

// Current returns the scope at the top of the stack.
func (tr *Tracker) Current() ID {
	return tr.stack[len(tr.stack)-1]
}

// Enter pushes a child of the current scope when n opens a scope and
// reports whether it did. The caller must pair a true result with Leave.
func (tr *Tracker) Enter(n *tree.Node) (ID, bool) {
	kind, ok := tr.kinds.ScopeKind(n.Type)
	if !ok {
		return tr.Current(), false
	}
	id := tr.table.New(tr.Current(), kind, n.ID())
	tr.stack = append(tr.stack, id)
	return id, true
}

// Leave pops the current scope. Global is never popped.
func (tr *Tracker) Leave() {
	if len(tr.stack) > 1 {
		tr.stack = tr.stack[:len(tr.stack)-1]
	}
}

// Depth returns the number of scopes on the stack, counting Global.
func (tr *Tracker) Depth() int { return len(tr.stack) }
