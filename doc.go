// Package asgraph turns tree-sitter syntax trees into abstract semantic
// graphs. A graph carries every node of the tree plus contains, calls,
// calls_import, references and control_flow edges, resolved with
// lexical scoping driven by per-language configuration tables.
//
// # Pipeline
//
// Building a graph runs in two passes over one pre-order layout of the
// tree:
//
//  1. Collect: open scopes at the configured node kinds, register
//     functions, classes and imports in global tables and variables and
//     parameters in their scope, and emit control_flow edges.
//
//  2. Resolve: link call sites to the function (calls) or import
//     (calls_import) they name, and every other identifier use to its
//     nearest visible definition (references).
//
// # Usage
//
//	e, err := asgraph.New(asgraph.WithCache("asgraph.db"))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	g, err := e.Graph(ctx, src, "python")
//	n, err := e.Locate(ctx, src, "python", 3, 8)
//	cs, err := e.Diff(ctx, oldSrc, src, "python")
//
// # Caching and Indexing
//
// With [WithCache], [Engine.ParseAndCache], [Engine.GraphAndCache] and
// [Engine.AnalyzeAndCache] store their results in SQLite under the content
// hash of the source. [Engine.IndexDirectory] builds and caches the graph
// of every supported file in a tree, skipping files whose content is
// unchanged. Cached artifacts are purged when the language tables change.
//
// # Languages
//
// Go, JavaScript, Python and TypeScript ship as embedded YAML tables. Use
// [WithLanguageFS] to supply different tables; languages without a
// tree-sitter grammar are ignored.
//
// # Scripts
//
// [Engine.RunScript] runs a Risor script over a built graph. See the
// internal/runtime package for the globals exposed to scripts. With
// [WithScriptsFS] script paths and imports resolve inside an fs.FS; the
// scripts package bundles a few ready-made ones.
package asgraph
