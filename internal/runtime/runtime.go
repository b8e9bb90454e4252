// Package runtime runs Risor scripts over a parsed source file and its
// semantic graph.
package runtime

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/parse"
	"github.com/jward/asgraph/internal/semantic"
	"github.com/jward/asgraph/internal/store"
	"github.com/jward/asgraph/internal/tree"
)

// Runtime embeds a Risor VM and exposes graph host functions to scripts.
type Runtime struct {
	langs      *lang.Registry
	parser     *parse.Parser
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	maxDepth   int
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts from fsys instead of from disk. Risor import
// statements resolve against the same filesystem.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithStore exposes the artifact cache to scripts through db_query.
func WithStore(s *store.Store) RuntimeOption {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithMaxDepth bounds tree nesting for every parse and traversal a script
// triggers.
func WithMaxDepth(n int) RuntimeOption {
	return func(r *Runtime) {
		r.maxDepth = n
	}
}

// WithLogger sets the logger behind the scripts' log object.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime over the given language registry and scripts
// directory. A nil registry selects lang.Default().
func NewRuntime(langs *lang.Registry, scriptsDir string, opts ...RuntimeOption) *Runtime {
	if langs == nil {
		langs = lang.Default()
	}
	r := &Runtime{
		langs:      langs,
		scriptsDir: scriptsDir,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.parser = parse.New(langs, parse.WithMaxDepth(r.maxDepth), parse.WithLogger(r.logger))
	return r
}

// Subject is the source file a script inspects.
type Subject struct {
	Language string
	Source   []byte
	Tree     *tree.Tree
	Graph    *semantic.Graph
}

// Load parses src and builds its graph.
func (r *Runtime) Load(ctx context.Context, src []byte, language string) (*Subject, error) {
	t, err := r.parser.Parse(ctx, src, language)
	if err != nil {
		return nil, fmt.Errorf("runtime: load: %w", err)
	}
	cfg, err := r.langs.Lookup(t.Language)
	if err != nil {
		return nil, fmt.Errorf("runtime: load: %w", err)
	}
	g, err := semantic.Build(t.Root, cfg, semantic.WithMaxDepth(r.maxDepth), semantic.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("runtime: load: %w", err)
	}
	return &Subject{Language: t.Language, Source: src, Tree: t, Graph: g}, nil
}

// RunScript loads and executes a Risor script over subj and returns the
// script's final value converted to Go.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, subj *Subject, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, subj, extraGlobals)
}

// RunSource executes Risor source code directly. Useful for testing without
// script files.
func (r *Runtime) RunSource(ctx context.Context, source string, subj *Subject, extraGlobals map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", subj, extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, subj *Subject, extraGlobals map[string]any) (any, error) {
	globals := r.buildGlobals(label, subj, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil || result == object.Nil {
		return nil, nil
	}
	return result.Interface(), nil
}

// buildImporter returns nil if neither fs.FS nor scriptsDir is configured.
// Imported modules compile against the same names the main script sees: the
// host globals plus Risor's default builtins and modules.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := importGlobalNames(globals)

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

func importGlobalNames(globals map[string]any) []string {
	seen := make(map[string]bool, len(globals))
	var names []string
	for _, name := range risor.NewConfig().GlobalNames() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range globals {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// LoadScript reads a .risor file. Relative paths resolve against the
// configured fs.FS, or scriptsDir when there is none.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(label string, subj *Subject, extra map[string]any) map[string]any {
	globals := map[string]any{
		"languages": makeLanguagesFn(r.langs),
		"log":       mustProxy(&logObject{logger: r.logger.With(slog.String("script", label))}),
	}

	if subj != nil {
		h := &host{rt: r, subj: subj}
		globals["language"] = subj.Language
		globals["source"] = string(subj.Source)
		globals["root"] = subj.Graph.Root
		globals["nodes"] = h.nodesFn()
		globals["edges"] = h.edgesFn()
		globals["node"] = h.nodeFn()
		globals["outgoing"] = h.outgoingFn()
		globals["node_at"] = h.nodeAtFn()
		globals["node_path"] = h.nodePathFn()
		globals["changed"] = h.changedFn()
		globals["query"] = h.queryFn()
	}

	if r.store != nil {
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
