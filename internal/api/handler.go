package api

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"rag/internal/service"
)

type AskParams struct {
	Question  string `json:"question" validate:"required"`
	TopK      int    `json:"top_k"`
	SessionID string `json:"session_id"`
}

func (p *AskParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		errs := err.(validator.ValidationErrors)
		out := make(map[string]string)
		for _, e := range errs {
			out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return out
	}
	return nil
}

type AskResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	DocumentID string            `json:"document_id"`
	SegmentID  string            `json:"segment_id"`
	Text       string            `json:"text"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type AskHandler struct {
	pipeline *service.Pipeline
}

func NewAskHandler(p *service.Pipeline) *AskHandler {
	return &AskHandler{pipeline: p}
}

func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var params AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := params.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}

	exchange, err := h.pipeline.Ask(c.Context(), params.Question, service.AskOptions{
		TopK:      params.TopK,
		SessionID: params.SessionID,
	})
	if err != nil {
		return err
	}

	sources := make([]Source, len(exchange.Sources))
	for i, s := range exchange.Sources {
		sources[i] = Source{
			DocumentID: s.Segment.DocumentID,
			SegmentID:  s.Segment.SegmentID,
			Text:       s.Segment.Text,
			Score:      s.Score,
			Metadata:   s.Segment.Metadata,
		}
	}
	return c.JSON(&AskResponse{
		Answer:    exchange.Answer,
		Sources:   sources,
		Timestamp: time.Now(),
	})
}
