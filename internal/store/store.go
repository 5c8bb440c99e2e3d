// Package store persists canonical salon records.
//
// The ingestion core only needs three operations: read a whole table,
// replace a whole table, and resolve a natural key to an id. Backends
// implement them on Postgres (pgx) and SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/salon/internal/model"
)

var (
	// ErrNotFound is returned by LookupByNaturalKey when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrAmbiguous is returned by LookupByNaturalKey when several rows match.
	ErrAmbiguous = errors.New("natural key is ambiguous")
	// ErrUnknownTable is returned for table names outside the salon schema.
	ErrUnknownTable = errors.New("unknown table")
)

// Store is the persistence collaborator used by ingestion and the catalog.
type Store interface {
	// FetchAll returns every row of table.
	FetchAll(ctx context.Context, table string) ([]model.Row, error)
	// ClearAndBulkInsert replaces the contents of table with rows.
	ClearAndBulkInsert(ctx context.Context, table string, rows []model.Row) error
	// LookupByNaturalKey resolves the trimmed natural key of table to an id.
	LookupByNaturalKey(ctx context.Context, table, key string) (int64, error)
	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int, error)

	// Get returns the row of table with id, or ErrNotFound.
	Get(ctx context.Context, table string, id int64) (model.Row, error)
	// Insert adds one row and returns the id the store assigned.
	Insert(ctx context.Context, table string, row model.Row) (int64, error)
	// Update overwrites every writable column of row id. ErrNotFound when
	// no row has that id.
	Update(ctx context.Context, table string, id int64, row model.Row) error
	// Delete removes row id. ErrNotFound when no row has that id.
	Delete(ctx context.Context, table string, id int64) error

	// Close releases the underlying connection(s).
	Close() error
}

// tableSpec describes how a table is written and looked up.
type tableSpec struct {
	columns    []string // insert columns, in order
	naturalKey string   // column matched by LookupByNaturalKey; empty if none
}

var tables = map[string]tableSpec{
	model.TableService: {
		columns:    []string{"title", "cost", "discount", "duration_seconds", "description", "main_image_path"},
		naturalKey: "title",
	},
	model.TableClient: {
		columns:    []string{"last_name", "first_name", "patronymic", "gender_code", "phone", "email", "birthday", "registration_date"},
		naturalKey: "last_name",
	},
	model.TableClientService: {
		columns: []string{"client_id", "service_id", "start_time", "start_text", "comment"},
	},
}

func lookupTable(table string) (tableSpec, error) {
	spec, ok := tables[table]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return spec, nil
}

// Tables returns the known table names.
func Tables() []string {
	return []string{model.TableService, model.TableClient, model.TableClientService}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdentifier(c)
	}
	return out
}

// updateStatement builds "UPDATE table SET c1 = p1, ... WHERE id = pN"
// using placeholder to render the n-th (1-based) parameter.
func updateStatement(table string, cols []string, placeholder func(n int) string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quoteIdentifier(c) + " = " + placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		quoteIdentifier(table), strings.Join(sets, ", "), placeholder(len(cols)+1))
}

func rowValues(row model.Row, cols []string) []any {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = row[c]
	}
	return vals
}
