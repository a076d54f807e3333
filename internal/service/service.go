// Package service drives the RAG pipeline: loaders feed the chunker, the
// embedder and index at build time; at query time retrieval, prompt assembly
// and generation run strictly in sequence.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"rag/internal/domain"
	"rag/internal/prompt"
)

// Pipeline wires the pipeline stages together. Each stage is a capability
// interface so alternative backends are interchangeable.
type Pipeline struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	index      domain.Index
	retriever  domain.Retriever
	generator  domain.Generator
	sessions   domain.SessionStore
	summarizer domain.Summarizer
	template   *prompt.Template
	logger     *slog.Logger

	// corpus retains every ingested segment when the embedder refits per
	// ingest, so earlier batches can be re-embedded in the new vector space.
	corpus []domain.Segment
	fitted bool
}

type Option func(*Pipeline)

// WithSessions enables conversation history keyed by session id.
func WithSessions(store domain.SessionStore) Option {
	return func(p *Pipeline) { p.sessions = store }
}

// WithSummarizer enables a corpus summary in the ingest report.
func WithSummarizer(s domain.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(chunker domain.Chunker, embedder domain.Embedder, index domain.Index, retr domain.Retriever, gen domain.Generator, tmpl *prompt.Template, opts ...Option) *Pipeline {
	p := &Pipeline{
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		retriever: retr,
		generator: gen,
		template:  tmpl,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestReport describes one build-time run over a document set.
type IngestReport struct {
	Documents int
	Segments  int
	Summary   string
}

// Ingest chunks every document, embeds the segments and appends them to the
// index. Embedders that need a corpus pass (TF-IDF) are refitted over
// everything ingested so far and the index is rebuilt, so vectors from
// earlier batches stay comparable with the grown vocabulary.
func (p *Pipeline) Ingest(ctx context.Context, docs []domain.Document) (*IngestReport, error) {
	var segments []domain.Segment
	for _, doc := range docs {
		segs, err := p.chunker.Split(doc)
		if err != nil {
			return nil, fmt.Errorf("splitting %s: %w", doc.Source, err)
		}
		segments = append(segments, segs...)
	}
	if len(segments) == 0 {
		return &IngestReport{Documents: len(docs)}, nil
	}

	if fitter, ok := p.embedder.(domain.Fitter); ok {
		if err := p.refit(ctx, fitter, segments); err != nil {
			return nil, err
		}
	} else if err := p.indexSegments(ctx, segments); err != nil {
		return nil, err
	}

	report := &IngestReport{Documents: len(docs), Segments: len(segments)}
	if p.summarizer != nil {
		var all string
		for _, doc := range docs {
			all += doc.Text + "\n"
		}
		var err error
		if report.Summary, err = p.summarizer.Summarize(all, 5); err != nil {
			return nil, fmt.Errorf("summarizing corpus: %w", err)
		}
	}
	p.logger.Info("ingest complete", "documents", report.Documents, "segments", report.Segments)
	return report, nil
}

// indexSegments embeds the given segments and appends them to the index.
func (p *Pipeline) indexSegments(ctx context.Context, segments []domain.Segment) error {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d segments: %w", len(texts), err)
	}
	entries := make([]domain.IndexEntry, len(segments))
	for i := range segments {
		entries[i] = domain.IndexEntry{Vector: vectors[i], Segment: segments[i]}
	}
	if err := p.index.Insert(ctx, entries); err != nil {
		return fmt.Errorf("indexing %d entries: %w", len(entries), err)
	}
	return nil
}

// refit re-fits a corpus-dependent embedder over the full retained corpus and
// rebuilds the index from scratch. Fitting over only the new batch would put
// its vectors in a different space than the already-indexed ones.
func (p *Pipeline) refit(ctx context.Context, fitter domain.Fitter, segments []domain.Segment) error {
	var reset func(context.Context) error
	if p.fitted {
		r, ok := p.index.(interface{ Reset(ctx context.Context) error })
		if !ok {
			return fmt.Errorf("%w: embedder refits per ingest but index %T cannot be rebuilt", domain.ErrInvalidConfig, p.index)
		}
		reset = r.Reset
	}

	p.corpus = append(p.corpus, segments...)
	texts := make([]string, len(p.corpus))
	for i, s := range p.corpus {
		texts[i] = s.Text
	}
	if err := fitter.Fit(texts); err != nil {
		return fmt.Errorf("fitting embedder: %w", err)
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d segments: %w", len(texts), err)
	}
	if reset != nil {
		if err := reset(ctx); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
	}
	entries := make([]domain.IndexEntry, len(p.corpus))
	for i := range p.corpus {
		entries[i] = domain.IndexEntry{Vector: vectors[i], Segment: p.corpus[i]}
	}
	if err := p.index.Insert(ctx, entries); err != nil {
		return fmt.Errorf("indexing %d entries: %w", len(entries), err)
	}
	p.fitted = true
	return nil
}

// AskOptions tune a single question-answer exchange.
type AskOptions struct {
	TopK      int
	SessionID string
}

// Exchange is the outcome of one completed question-answer exchange.
type Exchange struct {
	Answer  string
	Sources []domain.ScoredSegment
}

const defaultTopK = 5

// Ask runs one exchange: retrieving, then prompt building, then generating.
// No step starts before the previous one completes; a failure aborts the
// exchange and the returned error reports the step at which it occurred.
func (p *Pipeline) Ask(ctx context.Context, question string, opts AskOptions) (*Exchange, error) {
	promptText, results, history, err := p.prepare(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	answer, err := p.generator.Generate(ctx, promptText, history)
	if err != nil {
		return nil, &domain.StepError{Step: domain.StepGenerating, Err: err}
	}

	// A failed history append must not discard a completed answer.
	if err := p.remember(ctx, opts.SessionID, question, answer); err != nil {
		p.logger.Error("recording session turns", "session", opts.SessionID, "error", err)
	}
	return &Exchange{Answer: answer, Sources: results}, nil
}

// AskStream is the streaming variant of Ask. The assistant turn is appended
// to the session only once the stream has been fully consumed.
func (p *Pipeline) AskStream(ctx context.Context, question string, opts AskOptions) (domain.Stream, []domain.ScoredSegment, error) {
	promptText, results, history, err := p.prepare(ctx, question, opts)
	if err != nil {
		return nil, nil, err
	}

	st, err := p.generator.GenerateStream(ctx, promptText, history)
	if err != nil {
		return nil, nil, &domain.StepError{Step: domain.StepGenerating, Err: err}
	}
	if opts.SessionID != "" && p.sessions != nil {
		st = &recordingStream{
			inner: st,
			record: func(answer string) {
				if err := p.remember(ctx, opts.SessionID, question, answer); err != nil {
					p.logger.Error("recording session turns", "session", opts.SessionID, "error", err)
				}
			},
		}
	}
	return st, results, nil
}

// prepare runs the retrieving and prompt building steps shared by Ask and
// AskStream, and loads session history when configured.
func (p *Pipeline) prepare(ctx context.Context, question string, opts AskOptions) (string, []domain.ScoredSegment, []domain.Turn, error) {
	k := opts.TopK
	if k <= 0 {
		k = defaultTopK
	}

	results, err := p.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return "", nil, nil, &domain.StepError{Step: domain.StepRetrieving, Err: err}
	}
	p.logger.Debug("retrieved segments", "count", len(results), "k", k)

	promptText := p.template.Render(question, results)

	var history []domain.Turn
	if opts.SessionID != "" && p.sessions != nil {
		if history, err = p.sessions.Turns(ctx, opts.SessionID); err != nil {
			return "", nil, nil, fmt.Errorf("loading session %s: %w", opts.SessionID, err)
		}
	}
	return promptText, results, history, nil
}

func (p *Pipeline) remember(ctx context.Context, sessionID, question, answer string) error {
	if sessionID == "" || p.sessions == nil {
		return nil
	}
	err := p.sessions.Append(ctx, sessionID,
		domain.Turn{Role: domain.RoleUser, Content: question},
		domain.Turn{Role: domain.RoleAssistant, Content: answer},
	)
	if err != nil {
		return fmt.Errorf("appending to session %s: %w", sessionID, err)
	}
	return nil
}

// recordingStream accumulates chunks and invokes record once the consumer
// reaches the end of the stream. Abandoned streams record nothing.
type recordingStream struct {
	inner    domain.Stream
	buf      []byte
	record   func(answer string)
	recorded bool
}

func (s *recordingStream) Recv() (string, error) {
	chunk, err := s.inner.Recv()
	if err == io.EOF && !s.recorded {
		s.recorded = true
		s.record(string(s.buf))
	}
	if err != nil {
		return "", err
	}
	s.buf = append(s.buf, chunk...)
	return chunk, nil
}

func (s *recordingStream) Close() error { return s.inner.Close() }
