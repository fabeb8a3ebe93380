package sqlindex

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/gridpred/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (catalog and entry tables)
// 1 - Added (index_name, sort_value, key) index for range scans
const currentSchemaVersion = 1

// ErrClosed is returned by operations on a closed store or index.
var ErrClosed = errors.New("sqlindex: store is closed")

// Store is a SQLite database holding any number of ordered indexes.
//
// The store and every Index opened from it share one connection. The
// database is closed when the store and all of its indexes are closed.
type Store struct {
	db     *sql.DB
	closed atomic.Bool // the owner's reference has been released

	mu   sync.Mutex
	refs int
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, refs: 1}, nil
}

// Close releases the caller's reference. The connection stays open while
// indexes opened from the store are still in use. Closing twice is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.release()
}

// Index opens the ordered index called name, creating it on first use.
// Reopening an existing index with a different attribute or kind fails.
func (s *Store) Index(ctx context.Context, name, attribute string, kind value.Kind) (*Index, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexes (name, attribute, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, attribute, kind.String())
	if err != nil {
		s.release()
		return nil, fmt.Errorf("register index %s: %w", name, err)
	}

	var gotAttr, gotKind string
	err = s.db.QueryRowContext(ctx,
		"SELECT attribute, kind FROM indexes WHERE name = ?", name,
	).Scan(&gotAttr, &gotKind)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("read index %s: %w", name, err)
	}
	if gotAttr != attribute || gotKind != kind.String() {
		s.release()
		return nil, fmt.Errorf("index %s exists over %s (%s), not %s (%s)",
			name, gotAttr, gotKind, attribute, kind)
	}

	return &Index{store: s, name: name, attribute: attribute, kind: kind}, nil
}

// Drop deletes the index called name and all of its entries.
func (s *Store) Drop(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM indexes WHERE name = ?", name); err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

func (s *Store) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return ErrClosed
	}
	s.refs++
	return nil
}

func (s *Store) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the covering index used by range scans.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_index_entries_sort
		ON index_entries(index_name, sort_value, key)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var got string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&got); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if got != expected {
		return fmt.Errorf("%s = %q, expected %q", name, got, expected)
	}
	return nil
}
