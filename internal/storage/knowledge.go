package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/job-assistant/internal/retrieval"
)

// KnowledgeIndex is the persistent vector store over the knowledge_chunks table.
type KnowledgeIndex struct {
	db *sql.DB
}

var (
	_ retrieval.VectorStore       = (*KnowledgeIndex)(nil)
	_ retrieval.DimensionReporter = (*KnowledgeIndex)(nil)
)

// KnowledgeIndex returns the vector store sharing this database.
func (s *Store) KnowledgeIndex() *KnowledgeIndex {
	return &KnowledgeIndex{db: s.db}
}

// Count returns the number of indexed chunks, or retrieval.ErrIndexMissing
// when no build has completed.
func (k *KnowledgeIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := k.db.QueryRowContext(ctx, `SELECT chunk_count FROM knowledge_index_state WHERE id = 1`).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, retrieval.ErrIndexMissing
	}
	if err != nil {
		return 0, &PersistenceError{Op: "read knowledge index state", Cause: err}
	}
	return count, nil
}

// Replace swaps the whole index in one transaction.
func (k *KnowledgeIndex) Replace(ctx context.Context, records []retrieval.Record) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "begin index rebuild", Cause: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_chunks`); err != nil {
		return &PersistenceError{Op: "clear knowledge index", Cause: err}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knowledge_chunks (id, ordinal, text, source, category, section, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &PersistenceError{Op: "prepare chunk insert", Cause: err}
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Ordinal, r.Text, r.Metadata.Source, r.Metadata.Category,
			r.Metadata.Section, retrieval.EncodeEmbedding(r.Embedding)); err != nil {
			return &PersistenceError{Op: fmt.Sprintf("insert chunk %s", r.ID), Cause: err}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO knowledge_index_state (id, built_at, chunk_count) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET built_at = excluded.built_at, chunk_count = excluded.chunk_count`,
		time.Now().UTC().Format(time.RFC3339), len(records)); err != nil {
		return &PersistenceError{Op: "record index build", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit index rebuild", Cause: err}
	}
	return nil
}

// Search scans every chunk and keeps the topK closest.
func (k *KnowledgeIndex) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.ScoredRecord, error) {
	rows, err := k.db.QueryContext(ctx, `
		SELECT id, ordinal, text, source, category, section, embedding FROM knowledge_chunks`)
	if err != nil {
		return nil, &PersistenceError{Op: "scan knowledge index", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	scored, err := retrieval.ScanTopK(rows, vector, topK)
	if err != nil {
		return nil, &PersistenceError{Op: "scan knowledge index", Cause: err}
	}
	return scored, nil
}

// Dimensions reports the width of the stored embeddings, or 0 when the
// index holds none.
func (k *KnowledgeIndex) Dimensions(ctx context.Context) (int, error) {
	var blob []byte
	err := k.db.QueryRowContext(ctx, `SELECT embedding FROM knowledge_chunks ORDER BY ordinal LIMIT 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &PersistenceError{Op: "read embedding width", Cause: err}
	}
	return len(blob) / 4, nil
}
