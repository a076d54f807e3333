// Package memory provides an in-memory brute-force vector index.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"rag/internal/domain"
)

// Metric selects the similarity function, fixed per index at construction.
type Metric int

const (
	Cosine Metric = iota
	InnerProduct
)

// Index is an append-only in-memory vector index. Similarity is computed
// against every stored entry and the top k are returned; equal scores keep
// insertion order. A single writer lock serializes inserts while queries take
// a shared read lock, so readers never observe a partially-inserted batch.
type Index struct {
	metric Metric

	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexEntry
}

func New(metric Metric) *Index {
	return &Index{metric: metric}
}

func (ix *Index) Insert(ctx context.Context, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: empty vector", domain.ErrInvalidArgument)
		}
		if ix.dimension == 0 {
			ix.dimension = len(e.Vector)
		}
		if len(e.Vector) != ix.dimension {
			return fmt.Errorf("%w: vector dimension %d, index has %d", domain.ErrInvalidArgument, len(e.Vector), ix.dimension)
		}
	}
	ix.entries = append(ix.entries, entries...)
	return nil
}

func (ix *Index) Query(ctx context.Context, vector []float64, k int) ([]domain.ScoredSegment, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.entries) == 0 {
		return nil, nil
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index has %d", domain.ErrInvalidArgument, len(vector), ix.dimension)
	}

	scored := make([]domain.ScoredSegment, len(ix.entries))
	for i, e := range ix.entries {
		scored[i] = domain.ScoredSegment{Segment: e.Segment, Score: ix.similarity(vector, e.Vector)}
	}
	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Reset drops all entries so the index can be rebuilt, for callers that must
// re-embed the corpus after a vocabulary change.
func (ix *Index) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = nil
	ix.dimension = 0
	return nil
}

// Len reports the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) similarity(a, b []float64) float64 {
	switch ix.metric {
	case InnerProduct:
		return dot(a, b)
	default:
		return cosine(a, b)
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// cosine is dot(a,b)/(|a|*|b|), defined as 0 when either vector is zero.
func cosine(a, b []float64) float64 {
	var d, na, nb float64
	for i := range a {
		d += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return d / (math.Sqrt(na) * math.Sqrt(nb))
}
