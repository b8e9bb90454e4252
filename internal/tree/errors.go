package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a lookup by id or position misses.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDepthLimitExceeded is matched by every *DepthError.
	ErrDepthLimitExceeded = errors.New("depth limit exceeded")
)

// DepthError reports a traversal that nested deeper than Limit.
type DepthError struct {
	Limit  int
	NodeID string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("tree: depth limit %d exceeded at %s", e.Limit, e.NodeID)
}

// Is makes errors.Is(err, ErrDepthLimitExceeded) hold for any DepthError.
func (e *DepthError) Is(target error) bool {
	return target == ErrDepthLimitExceeded
}

// CheckDepth returns a *DepthError when depth exceeds limit. A limit of
// zero or less selects DefaultMaxDepth.
func CheckDepth(n *Node, depth, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if depth > limit {
		return &DepthError{Limit: limit, NodeID: n.ID()}
	}
	return nil
}
