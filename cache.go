package asgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jward/asgraph/internal/store"
)

// Cache is the content-hash contract the caching operations go through.
// Load reports ok=false when nothing is cached.
type Cache interface {
	Store(hash, kind string, payload []byte) error
	Load(hash, kind string) ([]byte, bool, error)
}

var _ Cache = (*store.Cache)(nil)

// ContentHash returns the cache key of src: hex SHA-256.
func ContentHash(src []byte) string {
	return store.ContentHash(src)
}

// ResourceURI returns the resource address of a cached artifact, for
// example "asg://<hash>".
func ResourceURI(kind, hash string) string {
	return kind + "://" + hash
}

// ParseAndCache parses src and caches the tree under its content hash. A
// tree already cached for the same source and language is returned as is.
func (e *Engine) ParseAndCache(ctx context.Context, src []byte, language string) (string, *Tree, error) {
	hash := ContentHash(src)
	t, err := readThrough(e, hash, KindAST, language, func() (*Tree, error) {
		return e.Parse(ctx, src, language)
	})
	return hash, t, err
}

// GraphAndCache builds the graph of src and caches it under its content
// hash.
func (e *Engine) GraphAndCache(ctx context.Context, src []byte, language string) (string, *Graph, error) {
	hash := ContentHash(src)
	g, err := readThrough(e, hash, KindASG, language, func() (*Graph, error) {
		return e.Graph(ctx, src, language)
	})
	return hash, g, err
}

// AnalyzeAndCache analyses src and caches the result under its content
// hash.
func (e *Engine) AnalyzeAndCache(ctx context.Context, src []byte, language string) (string, *Structure, error) {
	hash := ContentHash(src)
	s, err := readThrough(e, hash, KindAnalysis, language, func() (*Structure, error) {
		return e.Analyze(ctx, src, language)
	})
	return hash, s, err
}

// CachedTree returns the tree cached under hash.
func (e *Engine) CachedTree(hash string) (*Tree, error) {
	return loadCached[Tree](e, hash, KindAST)
}

// CachedGraph returns the graph cached under hash.
func (e *Engine) CachedGraph(hash string) (*Graph, error) {
	return loadCached[Graph](e, hash, KindASG)
}

// CachedAnalysis returns the analysis cached under hash.
func (e *Engine) CachedAnalysis(hash string) (*Structure, error) {
	return loadCached[Structure](e, hash, KindAnalysis)
}

// CachedNode returns the node with the given id from the tree cached under
// hash.
func (e *Engine) CachedNode(hash, id string) (*Node, error) {
	t, err := e.CachedTree(hash)
	if err != nil {
		return nil, err
	}
	return e.NodeByID(t, id)
}

func readThrough[T any](e *Engine, hash, kind, language string, build func() (*T, error)) (*T, error) {
	if e.store == nil {
		return nil, fmt.Errorf("asgraph: cache %s: %w", kind, ErrNoCache)
	}
	cfg, err := e.Config(language)
	if err != nil {
		return nil, err
	}

	a, err := e.store.Artifact(hash, kind, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("asgraph: cache %s: %w", kind, err)
	}
	if a != nil {
		var v T
		if err := json.Unmarshal(a.Payload, &v); err == nil {
			e.logger.Debug("cache hit", slog.String("kind", kind), slog.String("hash", hash))
			return &v, nil
		}
		e.logger.Warn("discarding undecodable cache entry", slog.String("kind", kind), slog.String("hash", hash))
	}

	v, err := build()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("asgraph: encode %s: %w", kind, err)
	}
	var c Cache = e.store.Cache(cfg.Name)
	if err := c.Store(hash, kind, payload); err != nil {
		return nil, fmt.Errorf("asgraph: cache %s: %w", kind, err)
	}
	return v, nil
}

func loadCached[T any](e *Engine, hash, kind string) (*T, error) {
	if e.store == nil {
		return nil, fmt.Errorf("asgraph: load %s: %w", kind, ErrNoCache)
	}
	var c Cache = e.store.Cache("")
	payload, ok, err := c.Load(hash, kind)
	if err != nil {
		return nil, fmt.Errorf("asgraph: load %s: %w", kind, err)
	}
	if !ok {
		return nil, fmt.Errorf("asgraph: load %s: %w", ResourceURI(kind, hash), ErrNotCached)
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("asgraph: decode %s: %w", kind, err)
	}
	return &v, nil
}
