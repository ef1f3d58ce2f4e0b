// Package retrieval indexes knowledge chunks and answers similarity queries over them.
package retrieval

import (
	"context"

	"github.com/jonathan/job-assistant/internal/types"
)

// VectorStore persists embedded chunks and searches them by cosine distance.
type VectorStore interface {
	// Count returns the number of indexed records. It returns ErrIndexMissing
	// when the index has never been created; any other error is real.
	Count(ctx context.Context) (int, error)

	// Replace atomically discards the existing index and stores records.
	Replace(ctx context.Context, records []Record) error

	// Search returns up to topK records ordered by ascending distance,
	// ties broken by ascending Ordinal.
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredRecord, error)
}

// DimensionReporter is implemented by stores that can report the width of
// their stored embeddings. Zero means the index holds no vectors.
type DimensionReporter interface {
	Dimensions(ctx context.Context) (int, error)
}

// Embedder turns text into vectors. Documents and queries may use different
// task hints on providers that support them.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSource produces a fresh set of chunks for a full rebuild.
type ChunkSource interface {
	Chunks() ([]types.KnowledgeChunk, error)
}

// StaticChunks is a ChunkSource over an in-memory slice.
type StaticChunks []types.KnowledgeChunk

// Chunks returns the slice unchanged.
func (s StaticChunks) Chunks() ([]types.KnowledgeChunk, error) {
	return s, nil
}

// Record is one indexed chunk.
type Record struct {
	ID        string
	Ordinal   int
	Text      string
	Metadata  types.ChunkMetadata
	Embedding []float32
}

// ScoredRecord is a Record with its distance to a query.
type ScoredRecord struct {
	Record
	Distance float64
}
