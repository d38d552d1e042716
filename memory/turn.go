package memory

import (
	"context"
	"errors"
	"time"
)

// Well-known speaker identities.
const (
	SpeakerUser       = "User"
	SpeakerToolCaller = "tool-caller"
)

// ErrSearchUnsupported is returned by Session.Search when the backing store
// does not implement Searcher.
var ErrSearchUnsupported = errors.New("memory: store does not support search")

// Turn is one attributed entry in a session log.
type Turn struct {
	ID        string         `json:"id"`
	Speaker   string         `json:"speaker"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists session logs. Implementations must preserve insertion order
// and be safe for concurrent use across different sessions.
type Store interface {
	Append(ctx context.Context, sessionID string, t Turn) error
	Turns(ctx context.Context, sessionID string) ([]Turn, error)
}

// Searcher is implemented by stores that can look up turns by content.
type Searcher interface {
	Search(ctx context.Context, sessionID, query string) ([]Turn, error)
}
