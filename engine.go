package asgraph

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/jward/asgraph/internal/analysis"
	"github.com/jward/asgraph/internal/diff"
	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/parse"
	"github.com/jward/asgraph/internal/position"
	"github.com/jward/asgraph/internal/runtime"
	"github.com/jward/asgraph/internal/semantic"
	"github.com/jward/asgraph/internal/store"
	"github.com/jward/asgraph/internal/tree"
)

// configHashKey is the metadata key under which the language configuration
// hash of the cached artifacts is kept.
const configHashKey = "config_hash"

// Engine parses source text and builds, diffs, locates and analyses its
// trees. An Engine is safe for concurrent use; every call builds its state
// fresh.
type Engine struct {
	langs     *lang.Registry
	langFS    fs.FS
	scriptsFS fs.FS
	parser    *parse.Parser
	runtime   *runtime.Runtime
	store     *store.Store
	dbPath    string
	languages map[string]bool // nil means all languages
	maxDepth  int
	logger    *slog.Logger

	// useParallel enables the worker-pool indexing pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages IndexFiles processes. Aliases are
// accepted.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, l := range languages {
			e.languages[l] = true
		}
	}
}

// WithCache backs the Engine with a SQLite artifact cache at dbPath.
func WithCache(dbPath string) Option {
	return func(e *Engine) {
		e.dbPath = dbPath
	}
}

// WithMaxDepth bounds tree nesting for every traversal. Zero selects
// tree.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallel controls parallel indexing. When true (default), IndexFiles
// builds graphs in a worker pool with a single goroutine committing batches
// to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithLanguageFS loads language configuration tables (*.yaml) from fsys
// instead of the embedded defaults.
func WithLanguageFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.langFS = fsys
	}
}

// WithScriptsFS makes RunScript resolve script paths and imports inside
// fsys instead of on disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine. Without WithCache the Engine keeps nothing between
// calls and the caching operations fail with ErrNoCache.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.langs = lang.Default()
	if e.langFS != nil {
		reg, err := lang.Load(e.langFS)
		if err != nil {
			return nil, fmt.Errorf("asgraph: load languages: %w", err)
		}
		e.langs = reg
	}
	if e.languages != nil {
		filtered := make(map[string]bool, len(e.languages))
		for l := range e.languages {
			filtered[e.langs.Normalize(l)] = true
		}
		e.languages = filtered
	}

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("asgraph: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("asgraph: migrate: %w", err)
		}
		e.store = s
		if err := e.syncConfigHash(); err != nil {
			s.Close()
			return nil, err
		}
	}

	e.parser = parse.New(e.langs, parse.WithMaxDepth(e.maxDepth), parse.WithLogger(e.logger))
	rtOpts := []runtime.RuntimeOption{
		runtime.WithMaxDepth(e.maxDepth),
		runtime.WithLogger(e.logger),
	}
	if e.store != nil {
		rtOpts = append(rtOpts, runtime.WithStore(e.store))
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(e.langs, "", rtOpts...)
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying cache, or nil without WithCache.
func (e *Engine) Store() *Store {
	return e.store
}

// ConfigChanged reports whether the language tables differ from the ones
// the cached artifacts were built with. It is true for a fresh cache.
func (e *Engine) ConfigChanged() bool {
	if e.store == nil {
		return false
	}
	stored, err := e.store.GetMetadata(configHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.langs.Hash()
}

// syncConfigHash purges artifacts built under different language tables and
// records the current hash.
func (e *Engine) syncConfigHash() error {
	if !e.ConfigChanged() {
		return nil
	}
	n, err := e.store.Purge()
	if err != nil {
		return fmt.Errorf("asgraph: purge stale artifacts: %w", err)
	}
	if n > 0 {
		e.logger.Info("language configuration changed, cache purged", slog.Int64("artifacts", n))
	}
	if err := e.store.SetMetadata(configHashKey, e.langs.Hash()); err != nil {
		return fmt.Errorf("asgraph: %w", err)
	}
	return nil
}

// Languages returns the canonical names of every language with both a
// grammar and a configuration table, sorted.
func (e *Engine) Languages() []string {
	return parse.Supported(e.langs)
}

// LanguageForFile detects a language from a file extension.
func (e *Engine) LanguageForFile(path string) (string, bool) {
	return e.langs.ForFile(path)
}

// Config returns the configuration table for language (aliases allowed).
func (e *Engine) Config(language string) (*lang.Config, error) {
	cfg, err := e.langs.Lookup(language)
	if err != nil {
		return nil, fmt.Errorf("asgraph: %w", err)
	}
	return cfg, nil
}

// Parse parses src. Syntax errors become ERROR nodes, never errors.
func (e *Engine) Parse(ctx context.Context, src []byte, language string) (*Tree, error) {
	t, err := e.parser.Parse(ctx, src, language)
	if err != nil {
		return nil, fmt.Errorf("asgraph: %w", err)
	}
	return t, nil
}

// Build constructs the semantic graph of an already parsed tree.
func (e *Engine) Build(t *Tree) (*Graph, error) {
	if t == nil {
		return nil, fmt.Errorf("asgraph: build graph: nil tree: %w", ErrNodeNotFound)
	}
	cfg, err := e.Config(t.Language)
	if err != nil {
		return nil, err
	}
	g, err := semantic.Build(t.Root, cfg, semantic.WithMaxDepth(e.maxDepth), semantic.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("asgraph: build graph: %w", err)
	}
	return g, nil
}

// Graph parses src and builds its semantic graph.
func (e *Engine) Graph(ctx context.Context, src []byte, language string) (*Graph, error) {
	t, err := e.Parse(ctx, src, language)
	if err != nil {
		return nil, err
	}
	return e.Build(t)
}

// Diff parses both generations and reports the edit ranges between them and
// the deepest nodes of the new tree covering each range.
func (e *Engine) Diff(ctx context.Context, oldSrc, newSrc []byte, language string) (*ChangeSet, error) {
	prev, err := e.Parse(ctx, oldSrc, language)
	if err != nil {
		return nil, err
	}
	cur, err := e.Parse(ctx, newSrc, language)
	if err != nil {
		return nil, err
	}
	return e.DiffTrees(prev, cur)
}

// DiffTrees compares two parsed generations, deriving the edit ranges from
// their leaf tokens.
func (e *Engine) DiffTrees(prev, cur *Tree) (*ChangeSet, error) {
	return e.diffTrees(prev, cur, diff.WithMaxDepth(e.maxDepth))
}

// DiffTreesWithRanges compares two parsed generations using ranges as the
// edit ranges. An empty list means nothing changed; it never falls back to
// derived ranges.
func (e *Engine) DiffTreesWithRanges(prev, cur *Tree, ranges []Range) (*ChangeSet, error) {
	return e.diffTrees(prev, cur, diff.WithMaxDepth(e.maxDepth), diff.WithRanges(ranges))
}

func (e *Engine) diffTrees(prev, cur *Tree, opts ...diff.Option) (*ChangeSet, error) {
	cs, err := diff.Compute(prev, cur, opts...)
	if err != nil {
		return nil, fmt.Errorf("asgraph: diff: %w", err)
	}
	return cs, nil
}

// Locate returns the deepest node at the 0-based (line, column) of src.
func (e *Engine) Locate(ctx context.Context, src []byte, language string, line, column int) (*Node, error) {
	t, err := e.Parse(ctx, src, language)
	if err != nil {
		return nil, err
	}
	return e.NodeAt(t, line, column)
}

// NodeAt returns the deepest node of t at the 0-based (line, column).
func (e *Engine) NodeAt(t *Tree, line, column int) (*Node, error) {
	if t == nil {
		return nil, fmt.Errorf("asgraph: locate: nil tree: %w", ErrNodeNotFound)
	}
	n, err := position.NodeAt(t.Root, line, column, e.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("asgraph: locate: %w", err)
	}
	return n, nil
}

// NodeByID returns the node of t with the given id.
func (e *Engine) NodeByID(t *Tree, id string) (*Node, error) {
	if t == nil {
		return nil, fmt.Errorf("asgraph: node %s: nil tree: %w", id, ErrNodeNotFound)
	}
	n, err := tree.FindByID(t.Root, id, e.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("asgraph: %w", err)
	}
	return n, nil
}

// Analyze parses src and summarises its functions, classes, imports and
// nesting.
func (e *Engine) Analyze(ctx context.Context, src []byte, language string) (*Structure, error) {
	t, err := e.Parse(ctx, src, language)
	if err != nil {
		return nil, err
	}
	cfg, err := e.Config(t.Language)
	if err != nil {
		return nil, err
	}
	s, err := analysis.Analyze(t.Root, cfg, e.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("asgraph: %w", err)
	}
	return s, nil
}

// RunScript runs the Risor script at scriptPath over src. The script sees
// the graph host functions of the runtime package and its final value is
// returned.
func (e *Engine) RunScript(ctx context.Context, scriptPath string, src []byte, language string, globals map[string]any) (any, error) {
	subj, err := e.runtime.Load(ctx, src, language)
	if err != nil {
		return nil, fmt.Errorf("asgraph: %w", err)
	}
	out, err := e.runtime.RunScript(ctx, scriptPath, subj, globals)
	if err != nil {
		return nil, fmt.Errorf("asgraph: %w", err)
	}
	return out, nil
}
