package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Artifacts go first so a file row never
// points at content whose graph is missing.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	batch.mu.Lock()
	defer batch.mu.Unlock()

	for i := range batch.Artifacts {
		if err := putArtifactTx(tx, &batch.Artifacts[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	for i := range batch.Files {
		if _, err := upsertFileTx(tx, &batch.Files[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	batch.Files = nil
	batch.Artifacts = nil
	return nil
}
