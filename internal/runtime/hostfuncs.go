package runtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/asgraph/internal/diff"
	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/parse"
	"github.com/jward/asgraph/internal/position"
	"github.com/jward/asgraph/internal/semantic"
	"github.com/jward/asgraph/internal/tree"
)

// host binds the graph host functions to one script subject.
type host struct {
	rt   *Runtime
	subj *Subject
}

// nodesFn creates "nodes".
//
// nodes() → list of node maps in pre-order
func (h *host) nodesFn() *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("nodes", 0, len(args))
		}
		results := make([]object.Object, 0, len(h.subj.Graph.Nodes))
		for _, rec := range h.subj.Graph.Nodes {
			results = append(results, recordToObject(rec))
		}
		return object.NewList(results)
	})
}

// edgesFn creates "edges".
//
// edges() → every edge
// edges(kind) → edges of one kind, in emission order
func (h *host) edgesFn() *object.Builtin {
	return object.NewBuiltin("edges", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("edges: expected at most 1 argument (kind), got %d", len(args))
		}
		edges := h.subj.Graph.Edges
		if len(args) == 1 {
			kind, err := toString(args[0])
			if err != nil {
				return object.Errorf("edges: kind: %v", err)
			}
			edges = h.subj.Graph.EdgesOf(semantic.EdgeKind(kind))
		}
		return edgesToList(edges)
	})
}

// nodeFn creates "node".
//
// node(id) → node map or nil
func (h *host) nodeFn() *object.Builtin {
	return object.NewBuiltin("node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node", 1, len(args))
		}
		id, err := toString(args[0])
		if err != nil {
			return object.Errorf("node: id: %v", err)
		}
		rec, err := h.subj.Graph.Node(id)
		if err != nil {
			return object.Nil
		}
		return recordToObject(rec)
	})
}

// outgoingFn creates "outgoing".
//
// outgoing(id) → edges whose source is id
func (h *host) outgoingFn() *object.Builtin {
	return object.NewBuiltin("outgoing", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("outgoing", 1, len(args))
		}
		id, err := toString(args[0])
		if err != nil {
			return object.Errorf("outgoing: id: %v", err)
		}
		return edgesToList(h.subj.Graph.Outgoing(id))
	})
}

// nodeAtFn creates "node_at".
//
// node_at(line, col) → deepest node map at the 0-based position, or nil
func (h *host) nodeAtFn() *object.Builtin {
	return object.NewBuiltin("node_at", func(ctx context.Context, args ...object.Object) object.Object {
		line, col, errObj := positionArgs("node_at", args)
		if errObj != nil {
			return errObj
		}
		n, err := position.NodeAt(h.subj.Tree.Root, line, col, h.rt.maxDepth)
		if errors.Is(err, tree.ErrNodeNotFound) {
			return object.Nil
		}
		if err != nil {
			return object.Errorf("node_at: %v", err)
		}
		return treeNodeToObject(n)
	})
}

// nodePathFn creates "node_path".
//
// node_path(line, col) → node maps from the root down to the deepest node at
// the position; empty outside the file
func (h *host) nodePathFn() *object.Builtin {
	return object.NewBuiltin("node_path", func(ctx context.Context, args ...object.Object) object.Object {
		line, col, errObj := positionArgs("node_path", args)
		if errObj != nil {
			return errObj
		}
		path, err := position.Path(h.subj.Tree.Root, line, col, h.rt.maxDepth)
		if errors.Is(err, tree.ErrNodeNotFound) {
			return object.NewList(nil)
		}
		if err != nil {
			return object.Errorf("node_path: %v", err)
		}
		results := make([]object.Object, 0, len(path))
		for _, n := range path {
			results = append(results, treeNodeToObject(n))
		}
		return object.NewList(results)
	})
}

func positionArgs(name string, args []object.Object) (int, int, *object.Error) {
	if len(args) != 2 {
		return 0, 0, object.NewArgsError(name, 2, len(args))
	}
	line, err := toInt64(args[0])
	if err != nil {
		return 0, 0, object.Errorf("%s: line: %v", name, err)
	}
	col, err := toInt64(args[1])
	if err != nil {
		return 0, 0, object.Errorf("%s: col: %v", name, err)
	}
	return int(line), int(col), nil
}

// changedFn creates "changed".
//
// changed(old_source) → nodes of the current tree that differ from
// old_source, parsed in the same language
func (h *host) changedFn() *object.Builtin {
	return object.NewBuiltin("changed", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("changed", 1, len(args))
		}
		old, err := toString(args[0])
		if err != nil {
			return object.Errorf("changed: %v", err)
		}
		prev, err := h.rt.parser.Parse(ctx, []byte(old), h.subj.Language)
		if err != nil {
			return object.Errorf("changed: %v", err)
		}
		cs, err := diff.Compute(prev, h.subj.Tree, diff.WithMaxDepth(h.rt.maxDepth))
		if err != nil {
			return object.Errorf("changed: %v", err)
		}
		results := make([]object.Object, 0, len(cs.ChangedNodes))
		for _, n := range cs.ChangedNodes {
			results = append(results, treeNodeToObject(n))
		}
		return object.NewList(results)
	})
}

// queryFn creates "query".
//
// query(pattern) → list of maps, capture name → node map
//
// Captured nodes carry the same ids as graph nodes, so results can be fed
// back into node() and outgoing().
func (h *host) queryFn() *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("query", 1, len(args))
		}
		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("query: pattern: %v", err)
		}
		grammar, ok := parse.Grammar(h.subj.Language)
		if !ok {
			return object.Errorf("query: no grammar for %q", h.subj.Language)
		}

		q, err := sitter.NewQuery([]byte(pattern), grammar)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		sp := sitter.NewParser()
		defer sp.Close()
		sp.SetLanguage(grammar)
		st, err := sp.ParseCtx(ctx, nil, h.subj.Source)
		if err != nil {
			return object.Errorf("query: parse: %v", err)
		}
		defer st.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, st.RootNode())

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, h.subj.Source)

			matchMap := make(map[string]object.Object, len(match.Captures))
			for _, capture := range match.Captures {
				matchMap[q.CaptureNameForId(capture.Index)] = sitterNodeToObject(capture.Node, h.subj.Source)
			}
			results = append(results, object.NewMap(matchMap))
		}
		return object.NewList(results)
	})
}

// makeLanguagesFn creates "languages".
//
// languages() → sorted canonical names with both a grammar and a table
func makeLanguagesFn(langs *lang.Registry) *object.Builtin {
	return object.NewBuiltin("languages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("languages", 0, len(args))
		}
		names := parse.Supported(langs)
		results := make([]object.Object, 0, len(names))
		for _, n := range names {
			results = append(results, object.NewString(n))
		}
		return object.NewList(results)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
