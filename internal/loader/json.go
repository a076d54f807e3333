package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"rag/internal/domain"
)

// JSONLoader loads records from a JSON file. A dotted path expression selects
// the records to load: an array at the path yields one document per element,
// an object yields a single document. Scalar fields of each record become
// metadata; a content key, if set, selects the body field, otherwise the
// record is serialized as sorted "key: value" lines.
type JSONLoader struct {
	path       string
	recordPath string
	contentKey string
}

type JSONOption func(*JSONLoader)

// WithContentKey selects the record field used as the document body.
func WithContentKey(key string) JSONOption {
	return func(l *JSONLoader) { l.contentKey = key }
}

func NewJSONLoader(path, recordPath string, opts ...JSONOption) *JSONLoader {
	l := &JSONLoader{path: path, recordPath: recordPath}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *JSONLoader) Load(ctx context.Context) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}

	node, err := selectPath(root, l.recordPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}

	var records []any
	switch v := node.(type) {
	case []any:
		records = v
	default:
		records = []any{v}
	}

	docs := make([]domain.Document, 0, len(records))
	for i, rec := range records {
		doc, err := l.toDocument(rec, i)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (l *JSONLoader) toDocument(rec any, seq int) (domain.Document, error) {
	obj, ok := rec.(map[string]any)
	if !ok {
		// Scalar or array records become the body verbatim.
		return domain.Document{
			ID:       uuid.NewString(),
			Source:   l.path,
			Text:     scalarString(rec),
			Metadata: map[string]string{"source": l.path, "seq": strconv.Itoa(seq)},
		}, nil
	}

	keys := make([]string, 0, len(obj))
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := scalar(v); ok {
			keys = append(keys, k)
			fields[k] = s
		}
	}
	sort.Strings(keys)

	var text string
	if l.contentKey != "" {
		s, ok := fields[l.contentKey]
		if !ok {
			return domain.Document{}, fmt.Errorf("%w: content key %q missing", domain.ErrInvalidConfig, l.contentKey)
		}
		text = s
	} else {
		text = renderRecord(keys, fields)
	}

	meta := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		meta[k] = v
	}
	meta["source"] = l.path
	meta["seq"] = strconv.Itoa(seq)

	return domain.Document{
		ID:       uuid.NewString(),
		Source:   l.path,
		Text:     text,
		Metadata: meta,
	}, nil
}

// selectPath walks a dotted path ("data.items") through nested objects.
// An empty path selects the root.
func selectPath(root any, path string) (any, error) {
	if path == "" {
		return root, nil
	}
	node := root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		key := path[start:i]
		start = i + 1
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: path %q does not traverse an object at %q", domain.ErrInvalidConfig, path, key)
		}
		node, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: path %q: key %q not found", domain.ErrInvalidConfig, path, key)
		}
	}
	return node, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

func scalarString(v any) string {
	if s, ok := scalar(v); ok {
		return s
	}
	data, _ := json.Marshal(v)
	return string(data)
}
