// Package qdrant is a minimal REST adapter exposing a Qdrant collection as a
// vector index. It assumes cosine distance and creates the collection lazily
// on the first insert.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"rag/internal/domain"
)

type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu       sync.Mutex
	attached bool
	seq      int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (ix *Index) Insert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.attached {
		if err := ix.attach(ctx, len(entries[0].Vector)); err != nil {
			return err
		}
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		ix.seq++
		points[i] = map[string]any{
			"id":     ix.seq,
			"vector": e.Vector,
			"payload": map[string]any{
				"document_id": e.Segment.DocumentID,
				"segment_id":  e.Segment.SegmentID,
				"index":       e.Segment.Index,
				"offset":      e.Segment.Offset,
				"text":        e.Segment.Text,
				"metadata":    e.Segment.Metadata,
				"seq":         ix.seq,
			},
		}
	}
	body := map[string]any{"points": points}
	return ix.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", ix.url, ix.collection), body)
}

func (ix *Index) Query(ctx context.Context, vector []float64, k int) ([]domain.ScoredSegment, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	ix.mu.Lock()
	if !ix.attached {
		found, count, err := ix.lookup(ctx)
		if err != nil {
			ix.mu.Unlock()
			return nil, err
		}
		if !found {
			ix.mu.Unlock()
			return nil, nil
		}
		ix.seq = count
		ix.attached = true
	}
	ix.mu.Unlock()

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := ix.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", ix.url, ix.collection), req, &resp); err != nil {
		return nil, err
	}

	type hit struct {
		seg   domain.Segment
		score float64
		seq   int
	}
	hits := make([]hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, hit{seg: payloadSegment(r.Payload), score: r.Score, seq: payloadSeq(r.Payload)})
	}
	// Equal scores come back in Qdrant's internal order; re-sort so ties keep
	// insertion order like the in-memory index.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].seq < hits[j].seq
	})
	results := make([]domain.ScoredSegment, len(hits))
	for i, h := range hits {
		results[i] = domain.ScoredSegment{Segment: h.seg, Score: h.score}
	}
	return results, nil
}

func payloadSegment(payload map[string]any) domain.Segment {
	seg := domain.Segment{}
	if v, ok := payload["document_id"].(string); ok {
		seg.DocumentID = v
	}
	if v, ok := payload["segment_id"].(string); ok {
		seg.SegmentID = v
	}
	if v, ok := payload["index"].(float64); ok {
		seg.Index = int(v)
	}
	if v, ok := payload["offset"].(float64); ok {
		seg.Offset = int(v)
	}
	if v, ok := payload["text"].(string); ok {
		seg.Text = v
	}
	if m, ok := payload["metadata"].(map[string]any); ok {
		seg.Metadata = make(map[string]string, len(m))
		for k, v := range m {
			switch t := v.(type) {
			case string:
				seg.Metadata[k] = t
			case float64:
				seg.Metadata[k] = strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return seg
}

func payloadSeq(payload map[string]any) int {
	if v, ok := payload["seq"].(float64); ok {
		return int(v)
	}
	return 0
}

// attach binds to the remote collection, creating it when absent, and seeds
// the point id sequence from the collection's current size so a restarted
// process never reuses ids of existing points.
func (ix *Index) attach(ctx context.Context, dimension int) error {
	found, count, err := ix.lookup(ctx)
	if err != nil {
		return err
	}
	if found {
		ix.seq = count
		ix.attached = true
		return nil
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidArgument)
	}
	if err := ix.createCollection(ctx, dimension); err != nil {
		return err
	}
	ix.attached = true
	return nil
}

// lookup fetches the collection info, reporting whether it exists and how
// many points it holds.
func (ix *Index) lookup(ctx context.Context) (bool, int, error) {
	var info struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	err := ix.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", ix.url, ix.collection), nil, &info)
	if errors.Is(err, errNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, info.Result.PointsCount, nil
}

func (ix *Index) createCollection(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return ix.putJSON(ctx, fmt.Sprintf("%s/collections/%s", ix.url, ix.collection), body)
}

var errNotFound = errors.New("not found")

func (ix *Index) putJSON(ctx context.Context, url string, body any) error {
	return ix.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (ix *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	return ix.doJSON(ctx, http.MethodPost, url, body, out)
}

func (ix *Index) doJSON(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", domain.ErrServiceUnavailable, method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant %s %s: %s", domain.ErrServiceUnavailable, method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
