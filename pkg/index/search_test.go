package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
}

func TestRank(t *testing.T) {
	chunks := []Chunk{
		{Seq: 0, Text: "far", Embedding: []float32{0, 1}},
		{Seq: 1, Text: "near", Embedding: []float32{1, 0.1}},
		{Seq: 2, Text: "exact", Embedding: []float32{1, 0}},
		{Seq: 3, Text: "exact twin", Embedding: []float32{2, 0}},
	}

	got := Rank(chunks, []float32{1, 0}, 3)
	texts := make([]string, len(got))
	for i, m := range got {
		texts[i] = m.Text
	}
	assert.Equal(t, []string{"exact", "exact twin", "near"}, texts)
	assert.Len(t, Rank(chunks, []float32{1, 0}, 10), 4)
}
