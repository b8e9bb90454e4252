package store

// ArtifactStore is the cache contract used at the analysis boundary. Both
// Store (direct SQLite) and BatchedStore (in-memory buffering for parallel
// indexing) implement this interface.
type ArtifactStore interface {
	PutArtifact(a *Artifact) error
	// Artifact returns nil, nil when nothing is cached.
	Artifact(hash, kind, language string) (*Artifact, error)
}

// Compile-time check: *Store satisfies ArtifactStore.
var _ ArtifactStore = (*Store)(nil)
