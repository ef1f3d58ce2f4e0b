package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes where a posting's text came from.
type Metadata struct {
	URL       string `json:"url,omitempty"`
	FetchedAt string `json:"fetched_at"` // RFC3339
	Hash      string `json:"hash"`       // SHA256 of the cleaned text
	Platform  string `json:"platform,omitempty"`
}

// NewMetadata stamps content with the current time and its hash.
func NewMetadata(content string, url string) *Metadata {
	return &Metadata{
		URL:       url,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
