package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/job-assistant/internal/retrieval"
	"github.com/jonathan/job-assistant/internal/storage"
)

const knowledgeTableSQL = `CREATE TABLE IF NOT EXISTS knowledge_chunks (
	id        TEXT PRIMARY KEY,
	ordinal   INTEGER NOT NULL,
	text      TEXT NOT NULL,
	source    TEXT NOT NULL DEFAULT '',
	category  TEXT NOT NULL DEFAULT '',
	section   TEXT NOT NULL DEFAULT '',
	embedding BYTEA NOT NULL
)`

// KnowledgeIndex is the Postgres vector store. The table exists only once an
// index has been built.
type KnowledgeIndex struct {
	db *DB
}

var (
	_ retrieval.VectorStore       = (*KnowledgeIndex)(nil)
	_ retrieval.DimensionReporter = (*KnowledgeIndex)(nil)
)

// KnowledgeIndex returns the vector store sharing this pool.
func (db *DB) KnowledgeIndex() *KnowledgeIndex {
	return &KnowledgeIndex{db: db}
}

// Count returns the number of indexed chunks. An undefined table maps to
// retrieval.ErrIndexMissing; every other failure is returned as is.
func (k *KnowledgeIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := k.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&count)
	if err != nil {
		if pgCode(err) == codeUndefinedTable {
			return 0, retrieval.ErrIndexMissing
		}
		return 0, &storage.PersistenceError{Op: "count knowledge chunks", Cause: err}
	}
	return count, nil
}

// Replace rebuilds the table contents in one transaction.
func (k *KnowledgeIndex) Replace(ctx context.Context, records []retrieval.Record) error {
	tx, err := k.db.pool.Begin(ctx)
	if err != nil {
		return &storage.PersistenceError{Op: "begin index rebuild", Cause: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, knowledgeTableSQL); err != nil {
		return &storage.PersistenceError{Op: "create knowledge table", Cause: err}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM knowledge_chunks`); err != nil {
		return &storage.PersistenceError{Op: "clear knowledge index", Cause: err}
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`INSERT INTO knowledge_chunks (id, ordinal, text, source, category, section, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.Ordinal, r.Text, r.Metadata.Source, r.Metadata.Category, r.Metadata.Section,
			retrieval.EncodeEmbedding(r.Embedding))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return &storage.PersistenceError{Op: "insert knowledge chunks", Cause: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &storage.PersistenceError{Op: "commit index rebuild", Cause: err}
	}
	return nil
}

// Search scans every chunk and keeps the topK closest.
func (k *KnowledgeIndex) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.ScoredRecord, error) {
	rows, err := k.db.pool.Query(ctx,
		`SELECT id, ordinal, text, source, category, section, embedding FROM knowledge_chunks`)
	if err != nil {
		if pgCode(err) == codeUndefinedTable {
			return nil, retrieval.ErrIndexMissing
		}
		return nil, &storage.PersistenceError{Op: "scan knowledge index", Cause: err}
	}
	defer rows.Close()

	scored, err := retrieval.ScanTopK(rows, vector, topK)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "scan knowledge index", Cause: err}
	}
	return scored, nil
}

// Dimensions reports the width of the stored embeddings, or 0 when the
// index holds none.
func (k *KnowledgeIndex) Dimensions(ctx context.Context) (int, error) {
	var blob []byte
	err := k.db.pool.QueryRow(ctx, `SELECT embedding FROM knowledge_chunks ORDER BY ordinal LIMIT 1`).Scan(&blob)
	if err != nil {
		if isNoRows(err) || pgCode(err) == codeUndefinedTable {
			return 0, nil
		}
		return 0, &storage.PersistenceError{Op: "read embedding width", Cause: err}
	}
	return len(blob) / 4, nil
}
