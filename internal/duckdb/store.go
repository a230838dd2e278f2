// Package duckdb caches BRCA Exchange query results in DuckDB.
// Each query is recorded in the queries table (so empty results are cached
// too) and its rows, in result order, in query_rows.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for caching query results.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes writers
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path ("" for in-memory).
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS queries (
		gene VARCHAR,
		query_start BIGINT,
		query_end BIGINT,
		variant_set VARCHAR,
		annotation_columns VARCHAR,
		row_count BIGINT,
		fetched_at TIMESTAMP,
		PRIMARY KEY (gene, query_start, query_end, variant_set, annotation_columns)
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS query_rows (
		gene VARCHAR,
		query_start BIGINT,
		query_end BIGINT,
		variant_set VARCHAR,
		annotation_columns VARCHAR,
		seq BIGINT,
		cells VARCHAR
	)`)
	return err
}
