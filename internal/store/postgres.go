package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/JonMunkholm/salon/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/postgres.sql
var postgresSchema string

// DBTX is the subset of pgx used by Postgres.
// Satisfied by *pgxpool.Pool.
type DBTX interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool}
}

// Migrate creates the salon tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// FetchAll returns every row of table ordered by id.
func (p *Postgres) FetchAll(ctx context.Context, table string) ([]model.Row, error) {
	if _, err := lookupTable(table); err != nil {
		return nil, err
	}
	return p.queryRows(ctx, table, fmt.Sprintf("SELECT * FROM %s ORDER BY id", quoteIdentifier(table)))
}

// Get returns row id of table.
func (p *Postgres) Get(ctx context.Context, table string, id int64) (model.Row, error) {
	if _, err := lookupTable(table); err != nil {
		return nil, err
	}
	rows, err := p.queryRows(ctx, table, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", quoteIdentifier(table)), id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return rows[0], nil
}

func (p *Postgres) queryRows(ctx context.Context, table, query string, args ...any) ([]model.Row, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []model.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		row := make(model.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// Count returns the number of rows in table.
func (p *Postgres) Count(ctx context.Context, table string) (int, error) {
	if _, err := lookupTable(table); err != nil {
		return 0, err
	}
	var n int
	if err := p.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Insert adds one row and returns its id.
func (p *Postgres) Insert(ctx context.Context, table string, row model.Row) (int64, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return 0, err
	}
	var id int64
	err = p.db.QueryRow(ctx, insertStatement(table, spec.columns)+" RETURNING id", rowValues(row, spec.columns)...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

// Update overwrites row id.
func (p *Postgres) Update(ctx context.Context, table string, id int64, row model.Row) error {
	spec, err := lookupTable(table)
	if err != nil {
		return err
	}
	args := append(rowValues(row, spec.columns), id)
	tag, err := p.db.Exec(ctx, updateStatement(table, spec.columns, pgPlaceholder), args...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// Delete removes row id.
func (p *Postgres) Delete(ctx context.Context, table string, id int64) error {
	if _, err := lookupTable(table); err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", quoteIdentifier(table)), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// ClearAndBulkInsert deletes every row of table and inserts rows in one
// transaction. Either all rows land or the table is left untouched.
func (p *Postgres) ClearAndBulkInsert(ctx context.Context, table string, rows []model.Row) error {
	spec, err := lookupTable(table)
	if err != nil {
		return err
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", quoteIdentifier(table))); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if len(rows) > 0 {
		insert := insertStatement(table, spec.columns)
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(insert, rowValues(row, spec.columns)...)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range rows {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert %s row %d: %w", table, i+1, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LookupByNaturalKey resolves a trimmed natural key to an id.
func (p *Postgres) LookupByNaturalKey(ctx context.Context, table, key string) (int64, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return 0, err
	}
	if spec.naturalKey == "" {
		return 0, fmt.Errorf("%w: %q has no natural key", ErrUnknownTable, table)
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE TRIM(%s) = $1 ORDER BY id LIMIT 2",
		quoteIdentifier(table), quoteIdentifier(spec.naturalKey))
	rows, err := p.db.Query(ctx, query, strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", table, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", table, err)
	}
	return singleID(ids)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func insertStatement(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = pgPlaceholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table),
		strings.Join(quoteColumns(cols), ", "),
		strings.Join(placeholders, ", "))
}

func singleID(ids []int64) (int64, error) {
	switch len(ids) {
	case 0:
		return 0, ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return 0, ErrAmbiguous
	}
}
