// Package sqlstore persists session logs through database/sql. SQLite and
// MySQL are supported; both share the same table layout and queries.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/petasbytes/deepagent/memory"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("sqlstore: unsupported driver")

// Config describes the database connection.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements memory.Store and memory.Searcher.
type Store struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped rows.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects, applies pool settings and creates the turns table.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: empty DSN")
	}
	switch cfg.Driver {
	case DriverSQLite:
	case DriverMySQL:
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	applyPool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	s := &Store{db: db, driver: cfg.Driver, logger: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func applyPool(db *sql.DB, cfg Config) {
	if cfg.Driver == DriverSQLite {
		// One connection keeps ":memory:" databases and write ordering consistent.
		db.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
}

func (s *Store) initSchema(ctx context.Context) error {
	var stmts []string
	switch s.driver {
	case DriverSQLite:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS turns (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL,
				turn_id TEXT NOT NULL,
				speaker TEXT NOT NULL,
				content TEXT NOT NULL,
				metadata TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq)`,
		}
	case DriverMySQL:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS turns (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				session_id VARCHAR(64) NOT NULL,
				turn_id VARCHAR(64) NOT NULL,
				speaker VARCHAR(255) NOT NULL,
				content LONGTEXT NOT NULL,
				metadata TEXT,
				created_at BIGINT NOT NULL,
				INDEX idx_turns_session (session_id, seq)
			)`,
		}
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init turns schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Append inserts t at the end of the session.
func (s *Store) Append(ctx context.Context, sessionID string, t memory.Turn) error {
	var md sql.NullString
	if len(t.Metadata) > 0 {
		b, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		md = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, turn_id, speaker, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, t.ID, t.Speaker, t.Content, md, t.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Turns returns the session in insertion order. Rows whose metadata does not
// decode are skipped.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	return s.query(ctx,
		`SELECT turn_id, speaker, content, metadata, created_at FROM turns WHERE session_id = ? ORDER BY seq`,
		sessionID)
}

// Search matches content case-insensitively, oldest first.
func (s *Store) Search(ctx context.Context, sessionID, query string) ([]memory.Turn, error) {
	return s.query(ctx,
		`SELECT turn_id, speaker, content, metadata, created_at FROM turns
		 WHERE session_id = ? AND LOWER(content) LIKE ? ESCAPE '!' ORDER BY seq`,
		sessionID, "%"+escapeLike(strings.ToLower(query))+"%")
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]memory.Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	out := []memory.Turn{}
	for rows.Next() {
		var (
			t       memory.Turn
			md      sql.NullString
			created int64
		)
		if err := rows.Scan(&t.ID, &t.Speaker, &t.Content, &md, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if md.Valid && md.String != "" {
			if err := json.Unmarshal([]byte(md.String), &t.Metadata); err != nil {
				s.logger.Warn().Err(err).Str("turn", t.ID).Msg("skipping turn with malformed metadata")
				continue
			}
		}
		t.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}
