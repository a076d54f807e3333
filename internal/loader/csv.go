package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"

	"rag/internal/domain"
)

// CSVLoader loads a delimited-record file, one document per row. Column names
// become metadata keys; the body is the row serialized as "column: value"
// lines in header order, unless a content column is designated.
type CSVLoader struct {
	path          string
	delimiter     rune
	fieldNames    []string // header override for files without a header row
	contentColumn string   // if set, this column alone becomes the body
}

type CSVOption func(*CSVLoader)

// WithDelimiter sets the field separator (default comma).
func WithDelimiter(d rune) CSVOption {
	return func(l *CSVLoader) { l.delimiter = d }
}

// WithFieldNames supplies column names for headerless files.
func WithFieldNames(names ...string) CSVOption {
	return func(l *CSVLoader) { l.fieldNames = names }
}

// WithContentColumn designates one column as the document body; the remaining
// columns stay metadata-only.
func WithContentColumn(name string) CSVOption {
	return func(l *CSVLoader) { l.contentColumn = name }
}

func NewCSVLoader(path string, opts ...CSVOption) *CSVLoader {
	l := &CSVLoader{path: path, delimiter: ','}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *CSVLoader) Load(ctx context.Context) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = l.delimiter
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := l.fieldNames
	if header == nil {
		header, rows = rows[0], rows[1:]
	}
	if l.contentColumn != "" && !contains(header, l.contentColumn) {
		return nil, fmt.Errorf("%w: content column %q not in header", domain.ErrInvalidConfig, l.contentColumn)
	}

	docs := make([]domain.Document, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: got %d fields, header has %d", i+1, len(row), len(header))
		}
		record := make(map[string]string, len(header))
		for j, col := range header {
			record[col] = row[j]
		}

		text := renderRecord(header, record)
		if l.contentColumn != "" {
			text = record[l.contentColumn]
		}

		meta := make(map[string]string, len(record)+2)
		for k, v := range record {
			meta[k] = v
		}
		meta["source"] = l.path
		meta["row"] = strconv.Itoa(i)

		docs = append(docs, domain.Document{
			ID:       uuid.NewString(),
			Source:   l.path,
			Text:     text,
			Metadata: meta,
		})
	}
	return docs, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
