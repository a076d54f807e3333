// Package loader reads external sources (delimited records, JSON records,
// plain text, PDF pages) and produces normalized documents.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"rag/internal/domain"
)

// ForPath picks a loader by file extension. Unknown extensions fall back to
// the plain-text loader.
func ForPath(path string) domain.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVLoader(path)
	case ".json":
		return NewJSONLoader(path, "")
	case ".pdf":
		return NewPDFLoader(path)
	default:
		return NewTextLoader(path)
	}
}

// renderRecord serializes one record as "key: value" lines in the given key
// order, matching how delimited rows are presented to the embedding model.
func renderRecord(keys []string, record map[string]string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", k, record[k])
	}
	return b.String()
}
