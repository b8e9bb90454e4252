package store

import (
	"database/sql"
	"fmt"
)

// UpsertFile inserts f, or updates the row with the same path. f.ID is set
// to the row id.
func (s *Store) UpsertFile(f *File) (int64, error) {
	return upsertFileTx(s.db, f)
}

type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func upsertFileTx(q execQuerier, f *File) (int64, error) {
	_, err := q.Exec(
		`INSERT INTO files (path, language, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET language = excluded.language, hash = excluded.hash,
		   line_count = excluded.line_count, last_indexed = excluded.last_indexed`,
		f.Path, f.Language, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file %q: %w", f.Path, err)
	}
	if err := q.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&f.ID); err != nil {
		return 0, fmt.Errorf("file id %q: %w", f.Path, err)
	}
	return f.ID, nil
}

// FileByPath returns the file at path, or nil, nil when it is not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, language, hash, line_count, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LineCount, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	return s.queryFiles("SELECT id, path, language, hash, line_count, last_indexed FROM files ORDER BY path")
}

// FilesByLanguage returns the indexed files of one language ordered by path.
func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	return s.queryFiles(
		"SELECT id, path, language, hash, line_count, last_indexed FROM files WHERE language = ? ORDER BY path",
		language,
	)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
