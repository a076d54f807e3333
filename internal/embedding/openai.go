// Package embedding converts text segments into fixed-length vectors, either
// through an OpenAI-compatible embeddings endpoint or a local TF-IDF
// vectorizer prepared over the corpus.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"rag/internal/domain"
)

// Client calls an OpenAI-compatible embeddings endpoint. Provider failures
// surface as distinct error kinds; no retry is performed here, that policy
// belongs to the caller.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	// dimension is written on the first successful embed; atomic because one
	// client serves concurrent queries.
	dimension atomic.Int64
}

// Config configures the embeddings client. The API key is passed explicitly;
// reading it from the environment is the caller's concern.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", domain.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}, nil
}

// Dimension reports the vector length observed on the first successful embed.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns one vector per input text, order-preserving.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", domain.ErrInvalidArgument)
	}
	body, _ := json.Marshal(struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{Input: texts, Model: c.model})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError("embeddings", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("embeddings", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding embeddings response: %v", domain.ErrServiceUnavailable, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrServiceUnavailable, len(out.Data), len(texts))
	}

	// Providers usually return entries in request order but the index field is
	// authoritative.
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vectors := make([][]float64, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", domain.ErrServiceUnavailable, i)
		}
		vectors[i] = d.Embedding
	}
	c.dimension.CompareAndSwap(0, int64(len(vectors[0])))
	return vectors, nil
}

// transportError classifies a failed round trip: deadline and network timeout
// errors must surface as Timeout, not ServiceUnavailable, so callers can
// choose a retry policy.
func transportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", domain.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, op, err)
}

func statusError(op string, status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: status %d", domain.ErrRateLimited, op, status)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s: status %d", domain.ErrTimeout, op, status)
	default:
		return fmt.Errorf("%w: %s: status %d", domain.ErrServiceUnavailable, op, status)
	}
}
