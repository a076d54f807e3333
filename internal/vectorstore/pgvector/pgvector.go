// Package pgvector backs the vector index with Postgres and the pgvector
// extension, for corpora that should survive process restarts.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"rag/internal/domain"
)

// Index stores entries in a pgvector-typed table. Entries are append-only;
// a serial sequence column preserves insertion order so equal-distance rows
// keep the same tie-break rule as the in-memory index. Cosine distance is the
// fixed metric (the <=> operator); the reported score is 1 - distance.
type Index struct {
	pool      *pgxpool.Pool
	dimension int
}

func New(ctx context.Context, connStr string, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d must be positive", domain.ErrInvalidConfig, dimension)
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	ix := &Index{pool: pool, dimension: dimension}
	if err := ix.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS segments (
		seq BIGSERIAL PRIMARY KEY,
		doc_id TEXT NOT NULL,
		segment_id TEXT NOT NULL,
		position INT NOT NULL,
		rune_offset INT NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB,
		embedding vector(%d) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_segments_embedding
		ON segments USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	CREATE INDEX IF NOT EXISTS idx_segments_doc_id ON segments(doc_id);
	`, ix.dimension)
	_, err := ix.pool.Exec(ctx, query)
	return err
}

func (ix *Index) Insert(ctx context.Context, entries []domain.IndexEntry) error {
	for _, e := range entries {
		if len(e.Vector) != ix.dimension {
			return fmt.Errorf("%w: vector dimension %d, index has %d", domain.ErrInvalidArgument, len(e.Vector), ix.dimension)
		}
	}
	// One transaction per batch so readers never see a partial insert.
	tx, err := ix.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `
	INSERT INTO segments (doc_id, segment_id, position, rune_offset, content, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, e := range entries {
		meta, err := json.Marshal(e.Segment.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query,
			e.Segment.DocumentID,
			e.Segment.SegmentID,
			e.Segment.Index,
			e.Segment.Offset,
			e.Segment.Text,
			meta,
			pgv.NewVector(toFloat32(e.Vector)),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (ix *Index) Query(ctx context.Context, vector []float64, k int) ([]domain.ScoredSegment, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index has %d", domain.ErrInvalidArgument, len(vector), ix.dimension)
	}

	const query = `
	SELECT doc_id, segment_id, position, rune_offset, content, metadata,
	       1 - (embedding <=> $1) AS score
	FROM segments
	ORDER BY embedding <=> $1 ASC, seq ASC
	LIMIT $2`
	rows, err := ix.pool.Query(ctx, query, pgv.NewVector(toFloat32(vector)), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredSegment
	for rows.Next() {
		var (
			seg  domain.Segment
			meta []byte
			s    domain.ScoredSegment
		)
		if err := rows.Scan(&seg.DocumentID, &seg.SegmentID, &seg.Index, &seg.Offset, &seg.Text, &meta, &s.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &seg.Metadata); err != nil {
				return nil, err
			}
		}
		s.Segment = seg
		results = append(results, s)
	}
	return results, rows.Err()
}

// Close releases the connection pool.
func (ix *Index) Close() {
	ix.pool.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
