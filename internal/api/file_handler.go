package api

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"rag/internal/loader"
	"rag/internal/service"
)

// FileHandler accepts an uploaded document, picks a loader by extension and
// feeds the result through the ingest path.
type FileHandler struct {
	pipeline  *service.Pipeline
	uploadDir string
}

func NewFileHandler(p *service.Pipeline, uploadDir string) *FileHandler {
	return &FileHandler{pipeline: p, uploadDir: uploadDir}
}

func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}
	path := filepath.Join(h.uploadDir, filepath.Base(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, path); err != nil {
		return err
	}

	docs, err := loader.ForPath(path).Load(c.Context())
	if err != nil {
		return err
	}
	report, err := h.pipeline.Ingest(c.Context(), docs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"file":      fileHeader.Filename,
		"documents": report.Documents,
		"segments":  report.Segments,
		"summary":   report.Summary,
	})
}
