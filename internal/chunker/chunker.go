package chunker

import (
	"fmt"
	"strconv"

	"rag/internal/domain"
)

// FixedChunker splits text into fixed-size rune windows with overlap.
// Consecutive segments advance by maxSize-overlap runes, so concatenating the
// first segment with the non-overlapping tail of each following segment
// reconstructs the document text exactly.
type FixedChunker struct {
	maxSize int
	overlap int
}

func NewFixedChunker(maxSize, overlap int) (*FixedChunker, error) {
	if err := validate(maxSize, overlap); err != nil {
		return nil, err
	}
	return &FixedChunker{maxSize: maxSize, overlap: overlap}, nil
}

func validate(maxSize, overlap int) error {
	if maxSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfig, overlap, maxSize)
	}
	return nil
}

func (c *FixedChunker) Split(doc domain.Document) ([]domain.Segment, error) {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := c.maxSize - c.overlap
	var segments []domain.Segment
	for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
		end := start + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, newSegment(doc, idx, start, string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return segments, nil
}

func newSegment(doc domain.Document, idx, offset int, text string) domain.Segment {
	meta := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["segment"] = strconv.Itoa(idx)
	return domain.Segment{
		DocumentID: doc.ID,
		SegmentID:  doc.ID + ":" + strconv.Itoa(idx),
		Index:      idx,
		Offset:     offset,
		Text:       text,
		Metadata:   meta,
	}
}
