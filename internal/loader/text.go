package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"rag/internal/domain"
)

// TextLoader loads a plain-text file as a single document. Chunking happens
// downstream; the whole file becomes one body.
type TextLoader struct {
	path string
}

func NewTextLoader(path string) *TextLoader {
	return &TextLoader{path: path}
}

func (l *TextLoader) Load(ctx context.Context) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	doc := domain.Document{
		ID:     uuid.NewString(),
		Source: l.path,
		Text:   string(data),
		Metadata: map[string]string{
			"source": l.path,
			"title":  filepath.Base(l.path),
		},
	}
	return []domain.Document{doc}, nil
}
