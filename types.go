package asgraph

import (
	"github.com/jward/asgraph/internal/analysis"
	"github.com/jward/asgraph/internal/diff"
	"github.com/jward/asgraph/internal/semantic"
	"github.com/jward/asgraph/internal/store"
	"github.com/jward/asgraph/internal/tree"
)

// Public type aliases for the internal types used in the Engine API. These
// are Go type aliases (=), identical to the internal types at compile time.

type Tree = tree.Tree
type Node = tree.Node
type Point = tree.Point
type DepthError = tree.DepthError
type Graph = semantic.Graph
type Edge = semantic.Edge
type EdgeKind = semantic.EdgeKind
type NodeRecord = semantic.NodeRecord
type ChangeSet = diff.ChangeSet
type Range = diff.Range
type Structure = analysis.Structure
type Store = store.Store
type File = store.File
