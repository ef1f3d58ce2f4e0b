package retrieval

import (
	"context"
	"sync"
)

// Compile-time check that MemoryStore implements VectorStore.
var (
	_ VectorStore       = (*MemoryStore)(nil)
	_ DimensionReporter = (*MemoryStore)(nil)
)

// MemoryStore is a process-local VectorStore.
type MemoryStore struct {
	mu      sync.RWMutex
	created bool
	records []Record
}

// NewMemoryStore returns an empty store with no index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Count returns ErrIndexMissing until the first Replace.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return 0, ErrIndexMissing
	}
	return len(s.records), nil
}

// Replace swaps in a new set of records.
func (s *MemoryStore) Replace(_ context.Context, records []Record) error {
	cp := make([]Record, len(records))
	copy(cp, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cp
	s.created = true
	return nil
}

// Search scans every record.
func (s *MemoryStore) Search(_ context.Context, vector []float32, topK int) ([]ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top := NewTopK(topK)
	for _, r := range s.records {
		top.Offer(ScoredRecord{Record: r, Distance: CosineDistance(vector, r.Embedding)})
	}
	return top.Results(), nil
}

// Dimensions returns the width of the first record's embedding.
func (s *MemoryStore) Dimensions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return 0, nil
	}
	return len(s.records[0].Embedding), nil
}
