package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session is a handle on one conversation log. Parent and child agents share
// the same *Session to see and contribute to the same turns.
type Session struct {
	id    string
	store Store
}

// NewSession starts a fresh session with a random id.
func NewSession(store Store) *Session {
	return &Session{id: uuid.NewString(), store: store}
}

// OpenSession returns a handle on an existing (or not yet written) session id.
func OpenSession(store Store, id string) *Session {
	return &Session{id: id, store: store}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store returns the backing store.
func (s *Session) Store() Store { return s.store }

// Append commits a turn attributed to speaker and returns it.
func (s *Session) Append(ctx context.Context, speaker, content string, metadata map[string]any) (Turn, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Turn{}, fmt.Errorf("turn id: %w", err)
	}
	t := Turn{
		ID:        id,
		Speaker:   speaker,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, s.id, t); err != nil {
		return Turn{}, fmt.Errorf("append turn to session %s: %w", s.id, err)
	}
	return t, nil
}

// Turns returns the full ordered log.
func (s *Session) Turns(ctx context.Context) ([]Turn, error) {
	return s.store.Turns(ctx, s.id)
}

// AsTurns returns the log projected for forSpeaker (see Project).
func (s *Session) AsTurns(ctx context.Context, forSpeaker string) ([]Message, error) {
	turns, err := s.store.Turns(ctx, s.id)
	if err != nil {
		return nil, err
	}
	return Project(turns, forSpeaker), nil
}

// Len returns the number of committed turns.
func (s *Session) Len(ctx context.Context) (int, error) {
	turns, err := s.store.Turns(ctx, s.id)
	if err != nil {
		return 0, err
	}
	return len(turns), nil
}

// Search delegates to the store when it implements Searcher.
func (s *Session) Search(ctx context.Context, query string) ([]Turn, error) {
	sr, ok := s.store.(Searcher)
	if !ok {
		return nil, ErrSearchUnsupported
	}
	return sr.Search(ctx, s.id, query)
}
