package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/asgraph/internal/semantic"
	"github.com/jward/asgraph/internal/store"
	"github.com/jward/asgraph/internal/tree"
)

// Risor cannot walk Go structs field by field, so graph values cross the
// boundary as maps.

func recordToObject(rec semantic.NodeRecord) object.Object {
	return object.NewMap(recordFields(rec))
}

func recordFields(rec semantic.NodeRecord) map[string]object.Object {
	return map[string]object.Object{
		"id":         object.NewString(rec.ID),
		"type":       object.NewString(rec.Type),
		"text":       object.NewString(rec.Text),
		"start_byte": object.NewInt(int64(rec.StartByte)),
		"end_byte":   object.NewInt(int64(rec.EndByte)),
		"start_line": object.NewInt(int64(rec.StartLine)),
		"start_col":  object.NewInt(int64(rec.StartCol)),
		"end_line":   object.NewInt(int64(rec.EndLine)),
		"end_col":    object.NewInt(int64(rec.EndCol)),
	}
}

// treeNodeToObject flattens n without its children; scripts reach the
// subtree through the graph.
func treeNodeToObject(n *tree.Node) object.Object {
	m := recordFields(semantic.NodeRecord{
		ID:        n.ID(),
		Type:      n.Type,
		Text:      n.Text,
		StartByte: n.StartByte,
		EndByte:   n.EndByte,
		StartLine: n.StartPoint.Row,
		StartCol:  n.StartPoint.Column,
		EndLine:   n.EndPoint.Row,
		EndCol:    n.EndPoint.Column,
	})
	m["children"] = object.NewInt(int64(len(n.Children)))
	return object.NewMap(m)
}

func sitterNodeToObject(n *sitter.Node, src []byte) object.Object {
	start, end := int(n.StartByte()), int(n.EndByte())
	return recordToObject(semantic.NodeRecord{
		ID:        tree.ID(n.Type(), start, end),
		Type:      n.Type(),
		Text:      n.Content(src),
		StartByte: start,
		EndByte:   end,
		StartLine: int(n.StartPoint().Row),
		StartCol:  int(n.StartPoint().Column),
		EndLine:   int(n.EndPoint().Row),
		EndCol:    int(n.EndPoint().Column),
	})
}

func edgesToList(edges []semantic.Edge) object.Object {
	results := make([]object.Object, 0, len(edges))
	for _, e := range edges {
		results = append(results, object.NewMap(map[string]object.Object{
			"source": object.NewString(e.Source),
			"target": object.NewString(e.Target),
			"type":   object.NewString(string(e.Kind)),
		}))
	}
	return object.NewList(results)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// makeDBQueryFn creates a db_query bridge that runs read-only SQL against
// the artifact cache. Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, arg.Inspect())
			}
		}

		rows, err := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return object.Errorf("db_query: columns: %v", err)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

func sqlValueToObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
