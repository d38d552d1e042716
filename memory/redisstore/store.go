// Package redisstore keeps each session log in a Redis list.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/petasbytes/deepagent/memory"
)

const defaultPrefix = "deepagent:session:"

// Config describes the Redis connection.
type Config struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements memory.Store and memory.Searcher. Turns are RPUSHed as JSON.
type Store struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped entries.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redisstore: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	s := &Store{client: client, prefix: prefix, logger: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) key(sessionID string) string { return s.prefix + sessionID }

// Append pushes t to the tail of the session list.
func (s *Store) Append(ctx context.Context, sessionID string, t memory.Turn) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(sessionID), b).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

// Turns returns the full list in insertion order. Entries that do not decode
// are skipped.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	vals, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	out := make([]memory.Turn, 0, len(vals))
	for i, v := range vals {
		var t memory.Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			s.logger.Warn().Err(err).Str("session", sessionID).Int("index", i).Msg("skipping malformed turn")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Search filters the session client-side.
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

// Close closes the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
