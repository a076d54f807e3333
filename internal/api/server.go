package api

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"rag/internal/service"
)

// Server is the minimal HTTP front end: a file-upload endpoint feeding the
// ingest path, an ask endpoint running the full exchange, and a health check.
type Server struct {
	listenAddr string
	uploadDir  string
	pipeline   *service.Pipeline
	logger     *slog.Logger
	app        *fiber.App
}

func NewServer(addr, uploadDir string, pipeline *service.Pipeline) *Server {
	return &Server{
		listenAddr: addr,
		uploadDir:  uploadDir,
		pipeline:   pipeline,
		logger:     slog.Default(),
	}
}

func (s *Server) Run() error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return err
	}

	s.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	var (
		askHandler  = NewAskHandler(s.pipeline)
		fileHandler = NewFileHandler(s.pipeline, s.uploadDir)
		check       = s.app.Group("/check")
		apiv1       = s.app.Group("/api/v1")
	)
	check.Get("/healthy", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"result": "ok"})
	})
	apiv1.Post("/ask", askHandler.HandleAsk)
	apiv1.Post("/upload", fileHandler.HandleUpload)

	s.logger.Info("server listening", "addr", s.listenAddr)
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Stop() error {
	if s.app == nil {
		return nil
	}
	s.logger.Info("server stopped")
	return s.app.Shutdown()
}
