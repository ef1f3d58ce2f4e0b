package retrieval

import "fmt"

// RowScanner is the cursor shape shared by *sql.Rows and pgx.Rows.
type RowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ScanTopK reads rows of (id, ordinal, text, source, category, section,
// embedding) and keeps the topK nearest to query. The caller closes rows.
func ScanTopK(rows RowScanner, query []float32, topK int) ([]ScoredRecord, error) {
	top := NewTopK(topK)
	for rows.Next() {
		var (
			r    Record
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.Ordinal, &r.Text, &r.Metadata.Source, &r.Metadata.Category, &r.Metadata.Section, &blob); err != nil {
			return nil, err
		}
		embedding, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.ID, err)
		}
		r.Embedding = embedding
		top.Offer(ScoredRecord{Record: r, Distance: CosineDistance(query, r.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return top.Results(), nil
}
