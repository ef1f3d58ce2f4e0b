package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCodec(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}

	b := EncodeEmbedding(v)
	assert.Len(t, b, 16)

	got, err := DecodeEmbedding(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDecodeEmbedding_BadLength(t *testing.T) {
	_, err := DecodeEmbedding([]byte{1, 2, 3})
	require.Error(t, err)
}
