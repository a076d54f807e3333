package chunker

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"rag/internal/domain"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// TokenChunker splits text into windows measured in BPE tokens instead of
// runes, which tracks embedding-model context limits more closely than
// character counts. The encoding tables are loaded lazily on first use.
type TokenChunker struct {
	maxTokens int
	overlap   int
	encoding  string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func NewTokenChunker(maxTokens, overlap int, encoding string) (*TokenChunker, error) {
	if err := validate(maxTokens, overlap); err != nil {
		return nil, err
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &TokenChunker{maxTokens: maxTokens, overlap: overlap, encoding: encoding}, nil
}

func (c *TokenChunker) Split(doc domain.Document) ([]domain.Segment, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(c.encoding)
	})
	if c.err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", c.encoding, c.err)
	}
	tokens := c.enc.Encode(doc.Text, nil, nil)
	return c.window(doc, tokens, func(ts []int) string { return c.enc.Decode(ts) }), nil
}

// window slices the token sequence into overlapping segments. Offsets advance
// incrementally by the rune length of each consumed step, so the whole pass
// decodes every token a bounded number of times.
func (c *TokenChunker) window(doc domain.Document, tokens []int, decode func([]int) string) []domain.Segment {
	if len(tokens) == 0 {
		return nil
	}
	step := c.maxTokens - c.overlap
	offset := 0
	var segments []domain.Segment
	for start, idx := 0, 0; start < len(tokens); start, idx = start+step, idx+1 {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		segments = append(segments, newSegment(doc, idx, offset, decode(tokens[start:end])))
		if end == len(tokens) {
			break
		}
		offset += len([]rune(decode(tokens[start : start+step])))
	}
	return segments
}
