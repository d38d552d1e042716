// Package jsonl stores session logs as one append-only JSONL file per session.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petasbytes/deepagent/memory"
)

// ErrInvalidSessionID is returned for ids that cannot be used as file names.
var ErrInvalidSessionID = errors.New("jsonl: invalid session id")

// Store implements memory.Store and memory.Searcher on top of a directory.
type Store struct {
	dir    string
	logger zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped lines and appends.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates dir if needed and returns a store rooted there.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	s := &Store{dir: dir, logger: zerolog.Nop(), locks: make(map[string]*sync.Mutex)}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func validateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

func (s *Store) lock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Append writes t as one JSON line and syncs the file.
func (s *Store) Append(ctx context.Context, sessionID string, t memory.Turn) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	l := s.lock(sessionID)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(s.path(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write turn: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync session file: %w", err)
	}
	s.logger.Debug().Str("session", sessionID).Str("speaker", t.Speaker).Msg("turn appended")
	return nil
}

// Turns reads the whole file. Missing sessions are empty; malformed lines are skipped.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []memory.Turn{}, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var out []memory.Turn
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var t memory.Turn
		if err := json.Unmarshal(raw, &t); err != nil {
			s.logger.Warn().Err(err).Str("session", sessionID).Int("line", line).Msg("skipping malformed turn")
			continue
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan session file: %w", err)
	}
	if out == nil {
		out = []memory.Turn{}
	}
	return out, nil
}

// Search scans the session for turns containing query (case-insensitive).
func (s *Store) Search(ctx context.Context, sessionID, query string) ([]memory.Turn, error) {
	turns, err := s.Turns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []memory.Turn
	for _, t := range turns {
		if strings.Contains(strings.ToLower(t.Content), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Sessions lists the ids of sessions stored in the directory.
func (s *Store) Sessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	return ids, nil
}
