// Package sqlite implements the storage contract on a relational store via
// database/sql and the pure-Go sqlite driver. The turn commit runs in a
// single transaction so every artifact of a turn becomes visible at once.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/repositories"
)

// sharedSessionID is the sentinel row owner for shared-catalog characters.
const sharedSessionID = 0

// Store is the relational backend.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ repositories.Storage = (*Store)(nil)

// Open connects to the sqlite database at dsn (a path or file: URL) and
// applies the schema.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps sqlite's lock semantics simple; the session
	// lock already serializes writers above this layer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// sessionID resolves a slug, mapping absence to the domain error.
func (s *Store) sessionID(ctx context.Context, q queryer, slug string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM sessions WHERE slug = ?`, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrSessionMissing, slug)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve session %s: %w", slug, err)
	}
	return id, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation matches sqlite's unique-constraint failures.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
