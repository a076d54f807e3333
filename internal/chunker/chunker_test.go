package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag/internal/domain"
)

func TestNewFixedChunker_Validation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := NewFixedChunker(100, 20)
		require.NoError(t, err)
		require.NotNil(t, c)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := NewFixedChunker(0, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("negative overlap", func(t *testing.T) {
		_, err := NewFixedChunker(100, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("overlap equals size", func(t *testing.T) {
		_, err := NewFixedChunker(100, 100)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

// reconstruct rebuilds the original text from overlapping segments: the first
// segment whole, then the tail of each following segment past the overlap.
func reconstruct(segments []domain.Segment, overlap int) string {
	var b strings.Builder
	for i, s := range segments {
		runes := []rune(s.Text)
		if i == 0 {
			b.WriteString(s.Text)
			continue
		}
		if overlap < len(runes) {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}

func TestFixedChunker_Reconstruction(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"no overlap even split", strings.Repeat("abcde", 20), 10, 0},
		{"overlap", strings.Repeat("abcde", 20), 10, 3},
		{"short final segment", "abcdefghijk", 4, 1},
		{"multibyte runes", strings.Repeat("héllo wörld ", 10) + "日本語テキスト", 7, 2},
		{"single short doc", "hi", 100, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewFixedChunker(tc.size, tc.overlap)
			require.NoError(t, err)
			segments, err := c.Split(domain.Document{ID: "d1", Text: tc.text})
			require.NoError(t, err)
			require.NotEmpty(t, segments)
			assert.Equal(t, tc.text, reconstruct(segments, tc.overlap))
		})
	}
}

func TestFixedChunker_SegmentFields(t *testing.T) {
	c, err := NewFixedChunker(4, 1)
	require.NoError(t, err)
	doc := domain.Document{
		ID:       "doc-1",
		Text:     "abcdefghij",
		Metadata: map[string]string{"title": "t"},
	}
	segments, err := c.Split(doc)
	require.NoError(t, err)
	require.Len(t, segments, 3) // offsets 0, 3, 6

	for i, s := range segments {
		assert.Equal(t, "doc-1", s.DocumentID)
		assert.Equal(t, i, s.Index)
		assert.Equal(t, i*3, s.Offset)
		assert.Equal(t, "t", s.Metadata["title"])
		assert.NotEmpty(t, s.Metadata["segment"])
	}
	assert.Equal(t, "doc-1:0", segments[0].SegmentID)
	assert.Equal(t, "abcd", segments[0].Text)
	assert.Equal(t, "ghij", segments[2].Text)
}

func TestFixedChunker_EmptyDocument(t *testing.T) {
	c, err := NewFixedChunker(10, 0)
	require.NoError(t, err)
	segments, err := c.Split(domain.Document{ID: "d1", Text: ""})
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestFixedChunker_MaxSizeBound(t *testing.T) {
	c, err := NewFixedChunker(5, 2)
	require.NoError(t, err)
	segments, err := c.Split(domain.Document{ID: "d1", Text: strings.Repeat("x", 57)})
	require.NoError(t, err)
	for _, s := range segments {
		assert.LessOrEqual(t, len([]rune(s.Text)), 5)
	}
}

func TestTokenChunker_WindowOffsets(t *testing.T) {
	// Token i stands in for a piece of text of known rune length, so offsets
	// can be checked without loading a real encoding.
	pieces := []string{"aé", "b", "cd", "e", "fg", "h", "ij", "k", "lm", "n"}
	decode := func(ts []int) string {
		var b strings.Builder
		for _, id := range ts {
			b.WriteString(pieces[id])
		}
		return b.String()
	}
	tokens := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	full := decode(tokens)

	c, err := NewTokenChunker(3, 1, "")
	require.NoError(t, err)
	doc := domain.Document{ID: "d1"}
	segments := c.window(doc, tokens, decode)
	require.Len(t, segments, 5) // token starts 0, 2, 4, 6, 8

	runes := []rune(full)
	for i, s := range segments {
		assert.Equal(t, i, s.Index)
		// Each offset points at the segment's first rune in the full text.
		assert.Equal(t, s.Text, string(runes[s.Offset:s.Offset+len([]rune(s.Text))]))
	}
	assert.Equal(t, 0, segments[0].Offset)
	assert.Equal(t, "aébcd", segments[0].Text)
	assert.Equal(t, 3, segments[1].Offset)
	assert.Equal(t, "cdefg", segments[1].Text)
	assert.Equal(t, "lmn", segments[4].Text)
}

func TestTokenChunker_WindowEmpty(t *testing.T) {
	c, err := NewTokenChunker(3, 1, "")
	require.NoError(t, err)
	assert.Empty(t, c.window(domain.Document{ID: "d1"}, nil, func([]int) string { return "" }))
}

func TestNewTokenChunker_Validation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := NewTokenChunker(256, 32, "")
		require.NoError(t, err)
		require.NotNil(t, c)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := NewTokenChunker(0, 0, DefaultEncoding)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("overlap not below size", func(t *testing.T) {
		_, err := NewTokenChunker(32, 32, DefaultEncoding)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}
