package retrieval

import "errors"

// ErrNotIndexed is returned by queries issued before any successful index build.
var ErrNotIndexed = errors.New("knowledge base is not indexed")

// ErrIndexMissing is returned by VectorStore.Count when no index exists yet.
var ErrIndexMissing = errors.New("knowledge index does not exist")
