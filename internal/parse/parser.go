// Package parse lowers tree-sitter syntax trees into the tree.Node model.
// Parser-level syntax errors are kept as ERROR nodes; they never fail a
// parse.
package parse

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/tree"
)

// Parser turns source text into a tree.Tree. A Parser holds no per-parse
// state and may be shared between goroutines.
type Parser struct {
	langs    *lang.Registry
	maxDepth int
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth bounds tree nesting. Zero selects tree.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) { p.maxDepth = n }
}

// WithLogger sets the logger for parse diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New creates a Parser over the given language registry.
func New(langs *lang.Registry, opts ...Option) *Parser {
	p := &Parser{
		langs:  langs,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse parses src as the named language (aliases allowed).
func (p *Parser) Parse(ctx context.Context, src []byte, language string) (*tree.Tree, error) {
	cfg, err := p.langs.Lookup(language)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	grammar, ok := Grammar(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("parse: no grammar for %q: %w", cfg.Name, lang.ErrUnsupportedLanguage)
	}

	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(grammar)

	st, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %s: %w", cfg.Name, err)
	}
	defer st.Close()

	root := st.RootNode()
	l := &lowerer{src: src, cfg: cfg, maxDepth: p.maxDepth}
	node, err := l.lower(root, "", 0)
	if err != nil {
		return nil, fmt.Errorf("parse: %s: %w", cfg.Name, err)
	}

	hasErrors := root.HasError()
	if hasErrors {
		p.logger.Debug("source contains syntax errors",
			slog.String("language", cfg.Name),
			slog.Int("bytes", len(src)),
		)
	}
	return &tree.Tree{Language: cfg.Name, Root: node, HasErrors: hasErrors}, nil
}

type spanKey struct {
	start, end uint32
	typ        string
}

type lowerer struct {
	src      []byte
	cfg      *lang.Config
	maxDepth int
}

func (l *lowerer) lower(n *sitter.Node, field string, depth int) (*tree.Node, error) {
	start, end := n.StartPoint(), n.EndPoint()
	out := &tree.Node{
		Type:       n.Type(),
		Field:      field,
		StartByte:  int(n.StartByte()),
		EndByte:    int(n.EndByte()),
		StartPoint: tree.Point{Row: int(start.Row), Column: int(start.Column)},
		EndPoint:   tree.Point{Row: int(end.Row), Column: int(end.Column)},
		Text:       n.Content(l.src),
	}
	if err := tree.CheckDepth(out, depth, l.maxDepth); err != nil {
		return nil, err
	}

	count := int(n.ChildCount())
	if count == 0 {
		return out, nil
	}
	fields := l.fields(n)
	out.Children = make([]*tree.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		child, err := l.lower(c, fields[spanKey{c.StartByte(), c.EndByte(), c.Type()}], depth+1)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// fields records the grammar field names of n's children, limited to the
// fields the language's exclusion rules ask about.
func (l *lowerer) fields(n *sitter.Node) map[spanKey]string {
	probe := l.cfg.ProbeFields(n.Type())
	if len(probe) == 0 {
		return nil
	}
	out := make(map[spanKey]string, len(probe))
	for _, f := range probe {
		if c := n.ChildByFieldName(f); c != nil {
			out[spanKey{c.StartByte(), c.EndByte(), c.Type()}] = f
		}
	}
	return out
}
