package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonathan/job-assistant/internal/types"
	"go.uber.org/zap"
)

// DefaultTopK is used when a query does not ask for a specific count.
const DefaultTopK = 5

// Retriever combines embedding and vector search over the knowledge index.
// Index takes exclusive access; queries may run concurrently.
type Retriever struct {
	embedder Embedder
	store    VectorStore
	logger   *zap.Logger

	mu      sync.RWMutex
	indexed bool
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder Embedder, store VectorStore, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// ChunkID is the identifier of the i-th chunk of one indexing run.
func ChunkID(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}

// Index builds the knowledge index from src. When an index with records
// already exists and force is false, it returns the existing count without
// reading src or computing embeddings, unless the stored vectors are a
// different width than the embedder now produces. Otherwise it rebuilds
// from scratch.
func (r *Retriever) Index(ctx context.Context, src ChunkSource, force bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Count(ctx)
	if err != nil && !errors.Is(err, ErrIndexMissing) {
		return 0, fmt.Errorf("failed to inspect knowledge index: %w", err)
	}
	if err == nil && existing > 0 && !force {
		changed, err := r.embedderChanged(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect knowledge index: %w", err)
		}
		if !changed {
			r.logger.Info("knowledge index already built, skipping", zap.Int("chunks", existing))
			r.indexed = true
			return existing, nil
		}
	}

	chunks, err := src.Chunks()
	if err != nil {
		return 0, fmt.Errorf("failed to load knowledge chunks: %w", err)
	}

	var embeddings [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		embeddings, err = r.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed knowledge chunks: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
		}
	} else {
		r.logger.Warn("no knowledge chunks to index")
	}

	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = Record{
			ID:        ChunkID(i),
			Ordinal:   i,
			Text:      c.Text,
			Metadata:  c.Metadata,
			Embedding: embeddings[i],
		}
	}

	if err := r.store.Replace(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store knowledge index: %w", err)
	}

	r.indexed = true
	r.logger.Info("knowledge index rebuilt", zap.Int("chunks", len(records)), zap.Bool("forced", force))
	return len(records), nil
}

// embedderChanged compares the stored embedding width with one query
// embedding. Stores that cannot report a width are trusted as is.
func (r *Retriever) embedderChanged(ctx context.Context) (bool, error) {
	reporter, ok := r.store.(DimensionReporter)
	if !ok {
		return false, nil
	}
	stored, err := reporter.Dimensions(ctx)
	if err != nil || stored == 0 {
		return false, err
	}
	vec, err := r.embedder.EmbedQuery(ctx, "knowledge index dimension check")
	if err != nil {
		return false, fmt.Errorf("failed to embed dimension check: %w", err)
	}
	if len(vec) == stored {
		return false, nil
	}
	r.logger.Warn("knowledge index was built with a different embedder, rebuilding",
		zap.Int("stored_dimensions", stored),
		zap.Int("embedder_dimensions", len(vec)))
	return true, nil
}

// Retrieve returns up to topK hits for query, nearest first.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]types.RetrievalHit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retrieve(ctx, query, topK)
}

// MultiQueryRetrieve runs every query in order and merges the hits. A hit
// whose text was already seen is dropped, keeping the distance from its first
// sighting. The merged hits are sorted by ascending distance.
func (r *Retriever) MultiQueryRetrieve(ctx context.Context, queries []string, topK int) ([]types.RetrievalHit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var merged []types.RetrievalHit
	for _, q := range queries {
		hits, err := r.retrieve(ctx, q, topK)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if _, ok := seen[h.Text]; ok {
				continue
			}
			seen[h.Text] = struct{}{}
			merged = append(merged, h)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})

	r.logger.Debug("multi-query retrieval",
		zap.Int("queries", len(queries)),
		zap.Int("hits", len(merged)))
	return merged, nil
}

func (r *Retriever) retrieve(ctx context.Context, query string, topK int) ([]types.RetrievalHit, error) {
	if !r.indexed {
		return nil, ErrNotIndexed
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge index: %w", err)
	}

	hits := make([]types.RetrievalHit, len(scored))
	for i, s := range scored {
		hits[i] = types.RetrievalHit{
			Text:     s.Text,
			Metadata: s.Metadata,
			Distance: s.Distance,
		}
	}
	return hits, nil
}
