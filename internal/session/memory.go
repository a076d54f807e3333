// Package session keeps ordered conversation turns per session id, with an
// in-memory store for transient histories and a SQLite store for histories
// that must survive restarts.
package session

import (
	"context"
	"sync"

	"rag/internal/domain"
)

// MemoryStore holds sessions in process memory. A single mutex serializes
// appends so concurrent requests for the same session keep turn order;
// sessions are created on first reference and live until cleared.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]domain.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]domain.Turn)}
}

func (s *MemoryStore) Turns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[sessionID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
