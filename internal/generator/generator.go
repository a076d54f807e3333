// Package generator sends assembled prompts to a chat completion endpoint and
// returns or streams the answer text.
package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"rag/internal/domain"
)

// Client calls an OpenAI-compatible chat completions endpoint. Ollama's chat
// API answers in a slightly different shape; both are accepted. Provider
// errors are not retried here.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	system  string
	client  *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// System, if set, is prepended as a system turn to every request.
	System  string
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: missing generator base URL", domain.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: missing generator model", domain.ErrInvalidConfig)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		system:  cfg.System,
		client:  &http.Client{Timeout: t},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// renderMessages converts history turns plus the new prompt into the wire
// format: optional system turn, then alternating user/assistant turns, then
// the prompt as the final user turn.
func (c *Client) renderMessages(prompt string, history []domain.Turn) []message {
	msgs := make([]message, 0, len(history)+2)
	if c.system != "" {
		msgs = append(msgs, message{Role: string(domain.RoleSystem), Content: c.system})
	}
	for _, t := range history {
		msgs = append(msgs, message{Role: string(t.Role), Content: t.Content})
	}
	return append(msgs, message{Role: string(domain.RoleUser), Content: prompt})
}

func (c *Client) Generate(ctx context.Context, prompt string, history []domain.Turn) (string, error) {
	resp, err := c.post(ctx, prompt, history, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading completion: %v", domain.ErrGenerationFailed, err)
	}

	// OpenAI shape first, then Ollama's.
	var openaiOut struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Choices) > 0 {
		return openaiOut.Choices[0].Message.Content, nil
	}
	var ollamaOut struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && ollamaOut.Message.Content != "" {
		return ollamaOut.Message.Content, nil
	}
	return "", fmt.Errorf("%w: unrecognized completion payload", domain.ErrGenerationFailed)
}

// GenerateStream returns a lazy, finite, non-restartable chunk sequence.
// Closing the stream closes the underlying connection promptly.
func (c *Client) GenerateStream(ctx context.Context, prompt string, history []domain.Turn) (domain.Stream, error) {
	resp, err := c.post(ctx, prompt, history, true)
	if err != nil {
		return nil, err
	}
	return &stream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

func (c *Client) post(ctx context.Context, prompt string, history []domain.Turn, streaming bool) (*http.Response, error) {
	body, _ := json.Marshal(struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
		Stream   bool      `json:"stream"`
	}{Model: c.model, Messages: c.renderMessages(prompt, history), Stream: streaming})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		if kindErr := statusError(resp.StatusCode); kindErr != nil {
			return nil, kindErr
		}
		// Provider returned an error payload for the request itself.
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return resp, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: completion: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: completion: %v", domain.ErrServiceUnavailable, err)
}

// statusError classifies transient provider statuses; other statuses fall
// through to GenerationFailed with the error payload attached.
func statusError(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: completion: status %d", domain.ErrRateLimited, status)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: completion: status %d", domain.ErrTimeout, status)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return fmt.Errorf("%w: completion: status %d", domain.ErrServiceUnavailable, status)
	default:
		return nil
	}
}

// stream consumes server-sent "data:" events or newline-delimited JSON, one
// chunk per line, and reports io.EOF at the end marker or stream close.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "data:")
		line = strings.TrimSpace(line)
		if line == "[DONE]" {
			s.done = true
			return "", io.EOF
		}
		chunk, last, err := decodeChunk([]byte(line))
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
		if last {
			s.done = true
		}
		if chunk == "" && last {
			return "", io.EOF
		}
		return chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	s.done = true
	return "", io.EOF
}

func (s *stream) Close() error {
	s.done = true
	return s.body.Close()
}

func decodeChunk(line []byte) (content string, done bool, err error) {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Done bool `json:"done"`
		Err  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(line, &chunk); err != nil {
		return "", false, err
	}
	if chunk.Err != nil {
		return "", false, errors.New(chunk.Err.Message)
	}
	if len(chunk.Choices) > 0 {
		c := chunk.Choices[0]
		return c.Delta.Content, c.FinishReason != nil, nil
	}
	return chunk.Message.Content, chunk.Done, nil
}
