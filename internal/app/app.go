// Package app assembles the pipeline components described by a config.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"rag/internal/chunker"
	"rag/internal/config"
	"rag/internal/domain"
	"rag/internal/embedding"
	"rag/internal/generator"
	"rag/internal/prompt"
	"rag/internal/retriever"
	"rag/internal/service"
	"rag/internal/session"
	"rag/internal/summarizer"
	"rag/internal/vectorstore/memory"
	"rag/internal/vectorstore/pgvector"
	"rag/internal/vectorstore/qdrant"
)

// Build constructs a pipeline from configuration. API keys are read from the
// environment variables the config names and passed to constructors
// explicitly; nothing ambient is mutated.
func Build(ctx context.Context, cfg *config.AppConfig) (*service.Pipeline, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := buildChunker(cfg)
	if err != nil {
		return nil, err
	}
	index, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gen, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}
	tmpl, err := buildTemplate(cfg)
	if err != nil {
		return nil, err
	}
	opts := []service.Option{service.WithSummarizer(summarizer.NewFrequencySummarizer())}
	sessions, err := buildSessions(cfg)
	if err != nil {
		return nil, err
	}
	if sessions != nil {
		opts = append(opts, service.WithSessions(sessions))
	}
	return service.New(ch, emb, index, retriever.New(emb, index), gen, tmpl, opts...), nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return embedding.NewTFIDF(), nil
	case "openai":
		o := cfg.Embedder.OpenAI
		if o == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrInvalidConfig)
		}
		return embedding.NewClient(embedding.Config{
			BaseURL: o.BaseURL,
			APIKey:  os.Getenv(o.APIKeyEnv),
			Model:   o.Model,
			Timeout: time.Duration(o.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Embedder.Type)
	}
}

func buildChunker(cfg *config.AppConfig) (domain.Chunker, error) {
	switch cfg.Chunker.Type {
	case "fixed", "":
		return chunker.NewFixedChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	case "token":
		return chunker.NewTokenChunker(cfg.Chunker.Size, cfg.Chunker.Overlap, cfg.Chunker.Encoding)
	default:
		return nil, fmt.Errorf("%w: unknown chunker %q", domain.ErrInvalidConfig, cfg.Chunker.Type)
	}
}

func buildIndex(ctx context.Context, cfg *config.AppConfig) (domain.Index, error) {
	switch cfg.Index.Type {
	case "memory", "":
		metric := memory.Cosine
		if cfg.Index.Metric == "dot" {
			metric = memory.InnerProduct
		}
		return memory.New(metric), nil
	case "pgvector":
		p := cfg.Index.Pgvector
		if p == nil {
			return nil, fmt.Errorf("%w: pgvector config missing", domain.ErrInvalidConfig)
		}
		return pgvector.New(ctx, p.DSN, p.Dimension)
	case "qdrant":
		q := cfg.Index.Qdrant
		if q == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrInvalidConfig)
		}
		return qdrant.New(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown index %q", domain.ErrInvalidConfig, cfg.Index.Type)
	}
}

func buildGenerator(cfg *config.AppConfig) (domain.Generator, error) {
	return generator.NewClient(generator.Config{
		BaseURL: cfg.Generator.BaseURL,
		APIKey:  os.Getenv(cfg.Generator.APIKeyEnv),
		Model:   cfg.Generator.Model,
		System:  cfg.Generator.System,
		Timeout: time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
}

func buildTemplate(cfg *config.AppConfig) (*prompt.Template, error) {
	text := cfg.Prompt.Template
	if text == "" {
		text = prompt.DefaultTemplate
	}
	return prompt.New(text)
}

func buildSessions(cfg *config.AppConfig) (domain.SessionStore, error) {
	switch cfg.Session.Type {
	case "none":
		return nil, nil
	case "memory", "":
		return session.NewMemoryStore(), nil
	case "sqlite":
		return session.NewSQLiteStore(cfg.Session.Path)
	default:
		return nil, fmt.Errorf("%w: unknown session store %q", domain.ErrInvalidConfig, cfg.Session.Type)
	}
}
