package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextLoader(t *testing.T) {
	path := writeFile(t, "notes.txt", "Wool needs cold water.\nCotton tolerates heat.\n")

	docs, err := NewTextLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].ID)
	assert.Equal(t, path, docs[0].Source)
	assert.Equal(t, "Wool needs cold water.\nCotton tolerates heat.\n", docs[0].Text)
	assert.Equal(t, "notes.txt", docs[0].Metadata["title"])
}

func TestTextLoader_MissingFile(t *testing.T) {
	_, err := NewTextLoader(filepath.Join(t.TempDir(), "absent.txt")).Load(context.Background())
	assert.Error(t, err)
}

func TestCSVLoader(t *testing.T) {
	path := writeFile(t, "students.csv", "name,age,grade\nAlice,20,A\nBob,22,B\n")

	docs, err := NewCSVLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "name: Alice\nage: 20\ngrade: A", docs[0].Text)
	assert.Equal(t, "Alice", docs[0].Metadata["name"])
	assert.Equal(t, "20", docs[0].Metadata["age"])
	assert.Equal(t, "0", docs[0].Metadata["row"])
	assert.Equal(t, path, docs[0].Metadata["source"])

	assert.Equal(t, "name: Bob\nage: 22\ngrade: B", docs[1].Text)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestCSVLoader_ContentColumn(t *testing.T) {
	path := writeFile(t, "faq.csv", "topic,answer\nwool,Wash wool cold.\n")

	docs, err := NewCSVLoader(path, WithContentColumn("answer")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Wash wool cold.", docs[0].Text)
	assert.Equal(t, "wool", docs[0].Metadata["topic"])
}

func TestCSVLoader_UnknownContentColumn(t *testing.T) {
	path := writeFile(t, "faq.csv", "topic,answer\nwool,cold\n")
	_, err := NewCSVLoader(path, WithContentColumn("body")).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestCSVLoader_HeaderlessWithFieldNames(t *testing.T) {
	path := writeFile(t, "plain.csv", "Alice,20\nBob,22\n")

	docs, err := NewCSVLoader(path, WithFieldNames("name", "age")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "name: Alice\nage: 20", docs[0].Text)
}

func TestCSVLoader_Delimiter(t *testing.T) {
	path := writeFile(t, "semi.csv", "name;age\nAlice;20\n")

	docs, err := NewCSVLoader(path, WithDelimiter(';')).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Alice", docs[0].Metadata["name"])
}

func TestJSONLoader_ArrayAtPath(t *testing.T) {
	path := writeFile(t, "records.json", `{"data":{"items":[
		{"title":"Wool care","body":"Wash cold.","views":12},
		{"title":"Cotton care","body":"Tumble dry low.","views":7}
	]}}`)

	docs, err := NewJSONLoader(path, "data.items", WithContentKey("body")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Wash cold.", docs[0].Text)
	assert.Equal(t, "Wool care", docs[0].Metadata["title"])
	assert.Equal(t, "12", docs[0].Metadata["views"])
	assert.Equal(t, "0", docs[0].Metadata["seq"])
	assert.Equal(t, "Tumble dry low.", docs[1].Text)
}

func TestJSONLoader_RootObject(t *testing.T) {
	path := writeFile(t, "one.json", `{"title":"Linen","body":"Iron damp."}`)

	docs, err := NewJSONLoader(path, "").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	// Without a content key, scalar fields render as sorted key: value lines.
	assert.Equal(t, "body: Iron damp.\ntitle: Linen", docs[0].Text)
}

func TestJSONLoader_BadPath(t *testing.T) {
	path := writeFile(t, "records.json", `{"data":[]}`)
	_, err := NewJSONLoader(path, "data.items").Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestJSONLoader_MissingContentKey(t *testing.T) {
	path := writeFile(t, "records.json", `[{"title":"no body here"}]`)
	_, err := NewJSONLoader(path, "", WithContentKey("body")).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestForPath_Dispatch(t *testing.T) {
	assert.IsType(t, &CSVLoader{}, ForPath("data.csv"))
	assert.IsType(t, &JSONLoader{}, ForPath("data.json"))
	assert.IsType(t, &PDFLoader{}, ForPath("doc.pdf"))
	assert.IsType(t, &TextLoader{}, ForPath("notes.txt"))
	assert.IsType(t, &TextLoader{}, ForPath("README.md"))
	assert.IsType(t, &TextLoader{}, ForPath("no-extension"))
}
