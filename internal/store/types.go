package store

import "time"

// Artifact kinds.
const (
	KindAST      = "ast"
	KindASG      = "asg"
	KindAnalysis = "analysis"
)

// File is an indexed source file.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Artifact is a cached, JSON-encoded result built from one source text.
type Artifact struct {
	Hash      string
	Kind      string
	Language  string
	Payload   []byte
	CreatedAt time.Time
}
