package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/salon/internal/model"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLite is a Store backed by a local SQLite file, for single-seat installs.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "salon.db"
	}
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// FetchAll returns every row of table ordered by id.
func (s *SQLite) FetchAll(ctx context.Context, table string) ([]model.Row, error) {
	if _, err := lookupTable(table); err != nil {
		return nil, err
	}
	return s.queryRows(ctx, table, fmt.Sprintf("SELECT * FROM %s ORDER BY id", quoteIdentifier(table)))
}

// Get returns row id of table.
func (s *SQLite) Get(ctx context.Context, table string, id int64) (model.Row, error) {
	if _, err := lookupTable(table); err != nil {
		return nil, err
	}
	rows, err := s.queryRows(ctx, table, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", quoteIdentifier(table)), id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return rows[0], nil
}

func (s *SQLite) queryRows(ctx context.Context, table, query string, args ...any) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}

	var result []model.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		row := make(model.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// Count returns the number of rows in table.
func (s *SQLite) Count(ctx context.Context, table string) (int, error) {
	if _, err := lookupTable(table); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Insert adds one row and returns its id.
func (s *SQLite) Insert(ctx context.Context, table string, row model.Row) (int64, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table), strings.Join(quoteColumns(spec.columns), ", "), sqlitePlaceholders(len(spec.columns))),
		rowValues(row, spec.columns)...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

// Update overwrites row id.
func (s *SQLite) Update(ctx context.Context, table string, id int64, row model.Row) error {
	spec, err := lookupTable(table)
	if err != nil {
		return err
	}
	args := append(rowValues(row, spec.columns), id)
	res, err := s.db.ExecContext(ctx, updateStatement(table, spec.columns, func(int) string { return "?" }), args...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", table, id, err)
	}
	return affectedOne(res, table, id)
}

// Delete removes row id.
func (s *SQLite) Delete(ctx context.Context, table string, id int64) error {
	if _, err := lookupTable(table); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", quoteIdentifier(table)), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	return affectedOne(res, table, id)
}

func affectedOne(res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func sqlitePlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ClearAndBulkInsert deletes every row of table and inserts rows in one
// transaction.
func (s *SQLite) ClearAndBulkInsert(ctx context.Context, table string, rows []model.Row) (retErr error) {
	spec, err := lookupTable(table)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", quoteIdentifier(table))); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdentifier(table), strings.Join(quoteColumns(spec.columns), ", "), sqlitePlaceholders(len(spec.columns))))
		if err != nil {
			return fmt.Errorf("prepare insert %s: %w", table, err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, rowValues(row, spec.columns)...); err != nil {
				return fmt.Errorf("insert %s row %d: %w", table, i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LookupByNaturalKey resolves a trimmed natural key to an id.
func (s *SQLite) LookupByNaturalKey(ctx context.Context, table, key string) (int64, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return 0, err
	}
	if spec.naturalKey == "" {
		return 0, fmt.Errorf("%w: %q has no natural key", ErrUnknownTable, table)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE TRIM(%s) = ? ORDER BY id LIMIT 2",
			quoteIdentifier(table), quoteIdentifier(spec.naturalKey)),
		strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("lookup %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("lookup %s: %w", table, err)
	}
	return singleID(ids)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
