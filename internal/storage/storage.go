// Package storage is the SQLite-backed inventory store: collections, items,
// mapping rules and share tokens.
//
// Uniqueness of serials within a collection and exclusivity of placed
// locations are enforced by the schema. Callers that need check-then-write
// semantics run inside WithCollectionTx, which serializes work per collection
// and opens an immediate (write-locking) transaction.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrLocationTaken is returned when a placement would break location exclusivity
	ErrLocationTaken = errors.New("location already occupied")
)

const memoryPath = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		image_ref TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		package_id TEXT NOT NULL,
		serial TEXT NOT NULL,
		section TEXT,
		row_number INTEGER CHECK (row_number IS NULL OR row_number BETWEEN 1 AND ` + strconv.Itoa(models.MaxRow) + `),
		column_number INTEGER CHECK (column_number IS NULL OR column_number BETWEEN 1 AND ` + strconv.Itoa(models.MaxColumn) + `),
		placed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(collection_id, serial)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_location
		ON items(collection_id, section, row_number, column_number)
		WHERE placed_at IS NOT NULL AND column_number IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS mapping_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		record_type TEXT NOT NULL,
		field_path TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mapping_rules_collection ON mapping_rules(collection_id)`,
	`CREATE TABLE IF NOT EXISTS share_tokens (
		token TEXT PRIMARY KEY,
		collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		expires_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the inventory store
type Store struct {
	db    *sql.DB
	locks *Locker
	path  string
}

// Open opens (creating if needed) the SQLite database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, locks: NewLocker(), path: path}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Inventory store opened", "path", path)
	return s, nil
}

func dsn(path string) string {
	params := []string{"_foreign_keys=on", "_txlock=immediate", "_busy_timeout=5000"}
	if path != memoryPath {
		params = append(params, "_journal_mode=WAL")
	}
	return path + "?" + strings.Join(params, "&")
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a write transaction scoped to one collection
type Tx struct {
	tx           *sql.Tx
	collectionID int64
}

// CollectionID returns the collection the transaction is scoped to
func (t *Tx) CollectionID() int64 {
	return t.collectionID
}

// WithCollectionTx runs fn inside a write transaction while holding the
// collection's lock. The transaction commits when fn returns nil and rolls
// back otherwise.
func (s *Store) WithCollectionTx(ctx context.Context, collectionID int64, fn func(tx *Tx) error) error {
	unlock, err := s.locks.Lock(ctx, collectionID)
	if err != nil {
		return err
	}
	defer unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback() // ignored if committed
	}()

	if err := fn(&Tx{tx: sqlTx, collectionID: collectionID}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueConstraintErr reports whether err is a UNIQUE or PRIMARY KEY violation
func isUniqueConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
