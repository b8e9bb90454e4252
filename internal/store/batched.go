package store

import "sync"

// BatchedStore buffers file rows and artifacts in memory. It implements
// ArtifactStore so indexing workers can write to it without knowing whether
// they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects slice appends. Artifact lookups check
// the buffer first and fall through to the underlying Store, which is safe
// for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Files     []File
	Artifacts []Artifact
}

// Compile-time check: *BatchedStore satisfies ArtifactStore.
var _ ArtifactStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for reads.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{store: s}
}

// AddFile buffers a file row for CommitBatch.
func (b *BatchedStore) AddFile(f *File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Files = append(b.Files, *f)
}

func (b *BatchedStore) PutArtifact(a *Artifact) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Artifacts = append(b.Artifacts, *a)
	return nil
}

// Artifact returns a buffered artifact when one matches, else the committed
// one.
func (b *BatchedStore) Artifact(hash, kind, language string) (*Artifact, error) {
	b.mu.Lock()
	for i := len(b.Artifacts) - 1; i >= 0; i-- {
		a := b.Artifacts[i]
		if a.Hash == hash && a.Kind == kind && a.Language == language {
			b.mu.Unlock()
			return &a, nil
		}
	}
	b.mu.Unlock()
	return b.store.Artifact(hash, kind, language)
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Files) + len(b.Artifacts)
}
