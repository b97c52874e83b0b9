package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a document or revision that does not exist.
var ErrNotFound = errors.New("docstore: not found")

// DocumentInfo summarizes one stored document for listings.
type DocumentInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SchemaVersion int       `json:"schemaVersion"`
	SavedAt       time.Time `json:"savedAt"`
	Revisions     int       `json:"revisions"`
}

// RevisionInfo summarizes one revision of a document.
type RevisionInfo struct {
	Rev         int64     `json:"rev"`
	ContentHash string    `json:"contentHash"`
	SavedAt     time.Time `json:"savedAt"`
}

// LoadDocument returns the head content of a document.
// Returns ErrNotFound if the document does not exist.
func (s *Store) LoadDocument(ctx context.Context, id string) (Document, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT content FROM documents WHERE id = ?
	`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("load document %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load document %q: %w", id, err)
	}

	doc, err := Decode([]byte(content))
	if err != nil {
		return Document{}, fmt.Errorf("load document %q: %w", id, err)
	}
	return doc, nil
}

// LoadRevision returns one historical revision of a document.
// Returns ErrNotFound if the document or the revision does not exist.
func (s *Store) LoadRevision(ctx context.Context, id string, rev int64) (Document, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT content FROM document_revisions
		WHERE document_id = ? AND rev = ?
	`, id, rev).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("load revision %d of %q: %w", rev, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load revision %d of %q: %w", rev, id, err)
	}

	doc, err := Decode([]byte(content))
	if err != nil {
		return Document{}, fmt.Errorf("load revision %d of %q: %w", rev, id, err)
	}
	return doc, nil
}

// ListDocuments returns a summary of every stored document.
// Results are ordered by id ASC for deterministic output.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.schema_version, d.saved_at, COUNT(r.id)
		FROM documents d
		LEFT JOIN document_revisions r ON r.document_id = d.id
		GROUP BY d.id
		ORDER BY d.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var infos []DocumentInfo
	for rows.Next() {
		var (
			info  DocumentInfo
			saved string
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.SchemaVersion, &saved, &info.Revisions); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		info.SavedAt, err = parseStamp(saved)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", info.ID, err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	if infos == nil {
		infos = []DocumentInfo{}
	}

	return infos, nil
}

// Revisions returns the save history of a document, oldest first.
// Returns ErrNotFound if the document does not exist.
func (s *Store) Revisions(ctx context.Context, id string) ([]RevisionInfo, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE id = ?
	`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("revisions of %q: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("revisions of %q: %w", id, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rev, content_hash, saved_at
		FROM document_revisions
		WHERE document_id = ?
		ORDER BY rev ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("revisions of %q: %w", id, err)
	}
	defer rows.Close()

	var revs []RevisionInfo
	for rows.Next() {
		var (
			info  RevisionInfo
			saved string
		)
		if err := rows.Scan(&info.Rev, &info.ContentHash, &saved); err != nil {
			return nil, fmt.Errorf("scan revision row: %w", err)
		}
		info.SavedAt, err = parseStamp(saved)
		if err != nil {
			return nil, fmt.Errorf("revision %d of %q: %w", info.Rev, id, err)
		}
		revs = append(revs, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	if revs == nil {
		revs = []RevisionInfo{}
	}

	return revs, nil
}

// parseStamp reads an RFC 3339 column back into a time.Time.
func parseStamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
