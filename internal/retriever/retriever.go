// Package retriever turns a natural-language query into ranked segments.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"rag/internal/domain"
)

// Retriever embeds a query and delegates to the index. It fails with whatever
// the embedder or index fail with and adds no failure modes of its own,
// beyond rejecting an empty query up front.
type Retriever struct {
	embedder domain.Embedder
	index    domain.Index
}

func New(embedder domain.Embedder, index domain.Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredSegment, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return r.index.Query(ctx, vectors[0], k)
}
