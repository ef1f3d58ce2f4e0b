package types

// ChunkMetadata records where a knowledge chunk came from.
type ChunkMetadata struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Section  string `json:"section"`
}

// KnowledgeChunk is one section of a knowledge-base document.
type KnowledgeChunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RetrievalHit is a chunk returned by a similarity query.
// Lower Distance means more relevant.
type RetrievalHit struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"`
}
