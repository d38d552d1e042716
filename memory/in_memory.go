package memory

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore keeps sessions in a process-local map. Safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]Turn)}
}

// Append adds t to the end of the session log.
func (s *InMemoryStore) Append(_ context.Context, sessionID string, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], cloneTurn(t))
	return nil
}

// Turns returns a copy of the session log; unknown sessions are empty.
func (s *InMemoryStore) Turns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.sessions[sessionID]
	out := make([]Turn, len(src))
	for i, t := range src {
		out[i] = cloneTurn(t)
	}
	return out, nil
}

// Search returns turns whose content contains query (case-insensitive), oldest first.
func (s *InMemoryStore) Search(_ context.Context, sessionID, query string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var out []Turn
	for _, t := range s.sessions[sessionID] {
		if strings.Contains(strings.ToLower(t.Content), q) {
			out = append(out, cloneTurn(t))
		}
	}
	return out, nil
}

func cloneTurn(t Turn) Turn {
	if t.Metadata != nil {
		md := make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}
		t.Metadata = md
	}
	return t
}
