package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag/internal/chunker"
	"rag/internal/domain"
	"rag/internal/embedding"
	"rag/internal/prompt"
	"rag/internal/retriever"
	"rag/internal/service"
	"rag/internal/vectorstore/memory"
)

type stubGenerator struct {
	answer string
	err    error
}

func (g *stubGenerator) Generate(context.Context, string, []domain.Turn) (string, error) {
	return g.answer, g.err
}

func (g *stubGenerator) GenerateStream(context.Context, string, []domain.Turn) (domain.Stream, error) {
	return nil, g.err
}

func newTestApp(t *testing.T, gen domain.Generator) (*fiber.App, *service.Pipeline) {
	t.Helper()
	ch, err := chunker.NewFixedChunker(200, 20)
	require.NoError(t, err)
	emb := embedding.NewTFIDF()
	ix := memory.New(memory.Cosine)
	tmpl, err := prompt.New(prompt.DefaultTemplate)
	require.NoError(t, err)
	pipeline := service.New(ch, emb, ix, retriever.New(emb, ix), gen, tmpl)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/ask", NewAskHandler(pipeline).HandleAsk)
	app.Post("/api/v1/upload", NewFileHandler(pipeline, t.TempDir()).HandleUpload)
	return app, pipeline
}

func ingestCareDoc(t *testing.T, pipeline *service.Pipeline) {
	t.Helper()
	_, err := pipeline.Ingest(context.Background(), []domain.Document{
		{ID: "washing", Source: "washing.txt", Text: "Wash wool garments by hand in cold water with a mild detergent."},
	})
	require.NoError(t, err)
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleAsk(t *testing.T) {
	app, pipeline := newTestApp(t, &stubGenerator{answer: "Wash it cold."})
	ingestCareDoc(t, pipeline)

	resp := postJSON(t, app, "/api/v1/ask", AskParams{Question: "How do I wash wool?", TopK: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out AskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Wash it cold.", out.Answer)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "washing", out.Sources[0].DocumentID)
	assert.Greater(t, out.Sources[0].Score, 0.0)
}

func TestHandleAsk_MissingQuestion(t *testing.T) {
	app, _ := newTestApp(t, &stubGenerator{answer: "x"})

	resp := postJSON(t, app, "/api/v1/ask", AskParams{TopK: 1})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out ValidationError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Errors, "Question")
}

func TestHandleAsk_InvalidJSON(t *testing.T) {
	app, _ := newTestApp(t, &stubGenerator{answer: "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAsk_GeneratorFailureMapsToStatus(t *testing.T) {
	app, pipeline := newTestApp(t, &stubGenerator{err: domain.ErrServiceUnavailable})
	ingestCareDoc(t, pipeline)

	resp := postJSON(t, app, "/api/v1/ask", AskParams{Question: "How do I wash wool?"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, string(domain.StepGenerating), out["step"])
}

func TestHandleAsk_RateLimitedMapsTo429(t *testing.T) {
	app, pipeline := newTestApp(t, &stubGenerator{err: domain.ErrRateLimited})
	ingestCareDoc(t, pipeline)

	resp := postJSON(t, app, "/api/v1/ask", AskParams{Question: "How do I wash wool?"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHandleUpload(t *testing.T) {
	app, _ := newTestApp(t, &stubGenerator{answer: "x"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "care.txt")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "Wash wool garments by hand in cold water.")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "care.txt", out["file"])
	assert.EqualValues(t, 1, out["documents"])
	assert.EqualValues(t, 1, out["segments"])
}

func TestHandleUpload_NoFile(t *testing.T) {
	app, _ := newTestApp(t, &stubGenerator{answer: "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
