package domain

import "context"

// Loader reads an external source and produces normalized documents.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

// Chunker splits a document's body into overlapping fixed-size segments.
type Chunker interface {
	Split(doc Document) ([]Segment, error)
}

// Embedder converts text into fixed-length numeric vectors via an external
// service. The returned slice is order-preserving: one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Fitter is implemented by embedders that need a preparation phase over the
// corpus before they can embed (local vectorizers such as TF-IDF).
type Fitter interface {
	Fit(corpus []string) error
}

// Index stores embedded segments and answers nearest-neighbor queries.
// Inserts are append-only; queries against a populated index do not mutate it.
type Index interface {
	Insert(ctx context.Context, entries []IndexEntry) error
	Query(ctx context.Context, vector []float64, k int) ([]ScoredSegment, error)
}

// Retriever turns a natural-language query into ranked relevant segments,
// hiding the embedding step. It adds no failure modes of its own.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]ScoredSegment, error)
}

// Stream is a finite, non-restartable sequence of answer chunks.
// Recv returns io.EOF when the stream ends; Close releases the underlying
// connection and may be called at any point to stop consuming.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Generator produces an answer for an assembled prompt, optionally preceded
// by conversation history as alternating user/assistant turns.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)
	GenerateStream(ctx context.Context, prompt string, history []Turn) (Stream, error)
}

// SessionStore keeps ordered conversation turns per session id. Appends for
// the same session are serialized so turn order is preserved; sessions are
// created on first reference and retained until cleared by the caller.
type SessionStore interface {
	Turns(ctx context.Context, sessionID string) ([]Turn, error)
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	Clear(ctx context.Context, sessionID string) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
