package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PutArtifact stores a, replacing any artifact with the same hash, kind and
// language.
func (s *Store) PutArtifact(a *Artifact) error {
	return putArtifactTx(s.db, a)
}

func putArtifactTx(q execQuerier, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := q.Exec(
		`INSERT INTO artifacts (hash, kind, language, payload, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hash, kind, language) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		a.Hash, a.Kind, a.Language, a.Payload, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put artifact %s/%s: %w", a.Kind, a.Hash, err)
	}
	return nil
}

// Artifact returns the cached artifact, or nil, nil when absent.
func (s *Store) Artifact(hash, kind, language string) (*Artifact, error) {
	a := &Artifact{}
	err := s.db.QueryRow(
		"SELECT hash, kind, language, payload, created_at FROM artifacts WHERE hash = ? AND kind = ? AND language = ?",
		hash, kind, language,
	).Scan(&a.Hash, &a.Kind, &a.Language, &a.Payload, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artifact %s/%s: %w", kind, hash, err)
	}
	return a, nil
}

// LatestArtifact returns the most recently stored artifact of kind for hash
// in any language, or nil, nil when absent.
func (s *Store) LatestArtifact(hash, kind string) (*Artifact, error) {
	a := &Artifact{}
	err := s.db.QueryRow(
		`SELECT hash, kind, language, payload, created_at FROM artifacts
		 WHERE hash = ? AND kind = ? ORDER BY created_at DESC, language LIMIT 1`,
		hash, kind,
	).Scan(&a.Hash, &a.Kind, &a.Language, &a.Payload, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest artifact %s/%s: %w", kind, hash, err)
	}
	return a, nil
}

// CountArtifacts returns the number of cached artifacts of each kind.
func (s *Store) CountArtifacts() (map[string]int, error) {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM artifacts GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan artifact count: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// Purge deletes cached artifacts of the given kinds, or of every kind when
// none are given. Returns the number of rows removed.
func (s *Store) Purge(kinds ...string) (int64, error) {
	query := "DELETE FROM artifacts"
	var args []any
	if len(kinds) > 0 {
		query += " WHERE kind IN (" + placeholderList(len(kinds)) + ")"
		args = stringsToArgs(kinds)
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge artifacts: %w", err)
	}
	return res.RowsAffected()
}
