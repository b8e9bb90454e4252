package asgraph

import (
	"errors"

	"github.com/jward/asgraph/internal/diff"
	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/semantic"
	"github.com/jward/asgraph/internal/store"
	"github.com/jward/asgraph/internal/tree"
)

// Errors returned by the Engine. Match them with errors.Is.
var (
	ErrUnsupportedLanguage = lang.ErrUnsupportedLanguage
	ErrMissingPriorState   = diff.ErrMissingPriorState
	ErrNodeNotFound        = tree.ErrNodeNotFound
	ErrDepthLimitExceeded  = tree.ErrDepthLimitExceeded
	ErrInvalidGraph        = semantic.ErrInvalidGraph

	// ErrNoCache is returned by caching operations on an Engine created
	// without WithCache.
	ErrNoCache = errors.New("no cache configured")

	// ErrNotCached is returned when a content hash has no artifact of the
	// requested kind.
	ErrNotCached = errors.New("not cached")
)

// DefaultMaxDepth is the nesting bound used when none is configured.
const DefaultMaxDepth = tree.DefaultMaxDepth

// Edge kinds.
const (
	Contains    = semantic.Contains
	Calls       = semantic.Calls
	CallsImport = semantic.CallsImport
	References  = semantic.References
	ControlFlow = semantic.ControlFlow
)

// Artifact kinds stored in the cache.
const (
	KindAST      = store.KindAST
	KindASG      = store.KindASG
	KindAnalysis = store.KindAnalysis
)
