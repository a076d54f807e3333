package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag/internal/domain"
	"rag/internal/vectorstore/memory"
)

type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r := New(&fakeEmbedder{}, memory.New(memory.Cosine))
	_, err := r.Retrieve(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRetrieve_RankedResults(t *testing.T) {
	ix := memory.New(memory.Cosine)
	err := ix.Insert(context.Background(), []domain.IndexEntry{
		{Vector: []float64{1, 0}, Segment: domain.Segment{SegmentID: "x"}},
		{Vector: []float64{0, 1}, Segment: domain.Segment{SegmentID: "y"}},
	})
	require.NoError(t, err)

	emb := &fakeEmbedder{vectors: map[string][]float64{"find x": {1, 0}}}
	r := New(emb, ix)

	results, err := r.Retrieve(context.Background(), "find x", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].Segment.SegmentID)
}

func TestRetrieve_EmbedderErrorPassesThrough(t *testing.T) {
	wantErr := errors.New("provider down")
	r := New(&fakeEmbedder{err: wantErr}, memory.New(memory.Cosine))
	_, err := r.Retrieve(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, wantErr)
}

func TestRetrieve_InvalidKPassesThrough(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{"q": {1, 0}}}
	r := New(emb, memory.New(memory.Cosine))
	_, err := r.Retrieve(context.Background(), "q", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
