package docstore

import (
	"context"
	"fmt"
	"time"
)

// SaveDocument upserts the document head and appends a revision, both in
// one transaction. A crash leaves either the previous save or the complete
// new one, never a head without its revision.
//
// The revision number is per-document and monotonic; the first save of a
// document is revision 1.
func (s *Store) SaveDocument(ctx context.Context, id string, name string, doc Document) error {
	if id == "" {
		return fmt.Errorf("save document: empty id")
	}

	content, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("save document %q: %w", id, err)
	}
	hash, err := contentHash(doc)
	if err != nil {
		return fmt.Errorf("save document %q: %w", id, err)
	}

	savedAt := doc.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	stamp := savedAt.UTC().Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document %q: begin tx: %w", id, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents
		(id, name, schema_version, content, content_hash, saved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name           = excluded.name,
			schema_version = excluded.schema_version,
			content        = excluded.content,
			content_hash   = excluded.content_hash,
			saved_at       = excluded.saved_at,
			updated_at     = excluded.updated_at
	`,
		id,
		name,
		doc.SchemaVersion,
		string(content),
		hash,
		stamp,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("save document %q: upsert head: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_revisions
		(document_id, rev, content, content_hash, saved_at)
		SELECT ?, COALESCE(MAX(rev), 0) + 1, ?, ?, ?
		FROM document_revisions
		WHERE document_id = ?
	`,
		id,
		string(content),
		hash,
		stamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("save document %q: append revision: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save document %q: commit: %w", id, err)
	}

	return nil
}

// DeleteDocument removes a document head; its revisions cascade away with
// it. Returns ErrNotFound if no such document exists.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %q: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete document %q: %w", id, ErrNotFound)
	}

	return nil
}
