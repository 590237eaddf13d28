// Package duckdb keeps an optional DuckDB snapshot of the reduced NPC state
// so a run can be inspected after the fact.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/rsvexclude/internal/duckdb/migrate"
)

// Store manages the DuckDB database connection.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// NewStore opens or creates a DuckDB database and applies the schema.
// If dbPath is empty, an in-memory database is used.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("duckdb: create parent dir: %w", err)
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}

	if err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// DBPath returns the configured path. Empty means in-memory.
func (s *Store) DBPath() string { return s.dbPath }

// SchemaVersion reports the applied migration version and how many embedded
// migrations are still pending.
func (s *Store) SchemaVersion(ctx context.Context) (current, pending int, err error) {
	return migrate.NewRunner(s.db).Status(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
