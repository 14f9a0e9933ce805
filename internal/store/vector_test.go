package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/startup-research/internal/model"
)

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e-7}
	out, err := DecodeVector(EncodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVector_BadLength(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a multiple of 4")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestTopK(t *testing.T) {
	chunks := []model.PatentChunk{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "near", Embedding: []float32{1, 0.1}},
		{ID: "mid", Embedding: []float32{1, 1}},
	}

	got := topK(chunks, []float32{1, 0}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Greater(t, got[0].Score, got[1].Score)

	all := topK(chunks, []float32{1, 0}, 0)
	assert.Len(t, all, 3)
}
