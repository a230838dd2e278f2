package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

var _ brca.RowStore = (*Store)(nil)

// CachedQuery describes one stored query.
type CachedQuery struct {
	Key       brca.QueryKey
	RowCount  int64
	FetchedAt time.Time
}

// SaveQuery stores rows for key, replacing any earlier result.
// The replacement runs in one transaction, so a failed save leaves the
// previous result (or none) in place. Rows are appended with the Appender
// API and keep their order.
func (s *Store) SaveQuery(key brca.QueryKey, rows []brca.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := saveQuery(ctx, conn, key, rows); err != nil {
		conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit query: %w", err)
	}
	return nil
}

func saveQuery(ctx context.Context, conn *sql.Conn, key brca.QueryKey, rows []brca.Row) error {
	if err := deleteQueryRows(ctx, conn, key); err != nil {
		return err
	}

	// Upsert rather than delete and insert: DuckDB rejects re-inserting a
	// primary key deleted earlier in the same transaction.
	if _, err := conn.ExecContext(ctx, `INSERT INTO queries VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO UPDATE SET row_count = excluded.row_count, fetched_at = excluded.fetched_at`,
		key.Gene, key.Start, key.End, key.VariantSet, key.Columns,
		int64(len(rows)), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert query: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "query_rows")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for i, row := range rows {
		cells, err := json.Marshal([]string(row))
		if err != nil {
			appender.Close()
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if err := appender.AppendRow(
			key.Gene, key.Start, key.End, key.VariantSet, key.Columns,
			int64(i), string(cells),
		); err != nil {
			appender.Close()
			return fmt.Errorf("append query row: %w", err)
		}
	}

	// Close flushes the appended rows into the open transaction.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush query rows: %w", err)
	}
	return nil
}

// LoadQuery returns the stored rows for key. ok is false when the query was
// never stored; a stored query with no rows returns ok with an empty slice.
func (s *Store) LoadQuery(key brca.QueryKey) ([]brca.Row, bool, error) {
	var count int64
	err := s.db.QueryRow(`SELECT row_count FROM queries
		WHERE gene=? AND query_start=? AND query_end=? AND variant_set=? AND annotation_columns=?`,
		key.Gene, key.Start, key.End, key.VariantSet, key.Columns).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache lookup: %w", err)
	}

	rows, err := s.db.Query(`SELECT cells FROM query_rows
		WHERE gene=? AND query_start=? AND query_end=? AND variant_set=? AND annotation_columns=?
		ORDER BY seq`,
		key.Gene, key.Start, key.End, key.VariantSet, key.Columns)
	if err != nil {
		return nil, false, fmt.Errorf("query cached rows: %w", err)
	}
	defer rows.Close()

	out := make([]brca.Row, 0, count)
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, false, fmt.Errorf("scan cached row: %w", err)
		}
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, false, fmt.Errorf("decode cached row: %w", err)
		}
		out = append(out, brca.Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate cached rows: %w", err)
	}
	if int64(len(out)) != count {
		return nil, false, fmt.Errorf("cached query %s:%d-%d has %d rows, expected %d",
			key.Gene, key.Start, key.End, len(out), count)
	}
	return out, true, nil
}

// ListQueries returns all stored queries ordered by gene and range.
func (s *Store) ListQueries() ([]CachedQuery, error) {
	rows, err := s.db.Query(`SELECT gene, query_start, query_end, variant_set, annotation_columns, row_count, fetched_at
		FROM queries ORDER BY gene, query_start, query_end, variant_set, annotation_columns`)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var out []CachedQuery
	for rows.Next() {
		var q CachedQuery
		if err := rows.Scan(&q.Key.Gene, &q.Key.Start, &q.Key.End, &q.Key.VariantSet, &q.Key.Columns,
			&q.RowCount, &q.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return out, nil
}

// ClearQueries removes all cached queries and rows.
func (s *Store) ClearQueries() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM query_rows"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM queries")
	return err
}

func deleteQueryRows(ctx context.Context, conn *sql.Conn, key brca.QueryKey) error {
	if _, err := conn.ExecContext(ctx, `DELETE FROM query_rows
		WHERE gene=? AND query_start=? AND query_end=? AND variant_set=? AND annotation_columns=?`,
		key.Gene, key.Start, key.End, key.VariantSet, key.Columns); err != nil {
		return fmt.Errorf("delete cached rows: %w", err)
	}
	return nil
}
