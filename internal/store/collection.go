// ABOUTME: Generic collection primitive: key -> JSON record plus secondary indexes
// ABOUTME: Backed by one SQLite table per collection with extracted index columns

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// IndexSpec declares a secondary index on a collection. The index name is
// also the record field it covers.
type IndexSpec struct {
	Name   string
	Unique bool
}

// Schema declares a collection and its secondary indexes.
type Schema struct {
	Name    string
	Indexes []IndexSpec
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so a
// Collection works identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Collection is a durable mapping from primary key to an opaque JSON record,
// with lookups over the indexes its Schema declares. The record and its index
// entries live in a single row, so a Put or Delete can never leave the index
// out of step with the data.
type Collection struct {
	q        querier
	schema   Schema
	readonly bool
}

func (c *Collection) indexSpec(name string) (IndexSpec, bool) {
	for _, idx := range c.schema.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSpec{}, false
}

// Put inserts or replaces the record under key. Overwriting an existing key
// is not an error. A unique index collision with a different record fails
// with ErrConstraint and writes nothing.
//
// indexes carries the record's value for every declared index; missing
// entries are stored as empty strings.
func (c *Collection) Put(ctx context.Context, key string, record []byte, indexes map[string]string) error {
	if c.readonly {
		return fmt.Errorf("collection %s: put %s: %w", c.schema.Name, key, ErrReadOnlyTx)
	}
	for name := range indexes {
		if _, ok := c.indexSpec(name); !ok {
			return fmt.Errorf("collection %s: putting index %q: %w", c.schema.Name, name, ErrUnknownCollection)
		}
	}

	cols := []string{"id", "data"}
	args := []any{key, record}
	updates := []string{`data = excluded.data`}
	for _, idx := range c.schema.Indexes {
		cols = append(cols, quoteIdent(idx.Name))
		args = append(args, indexes[idx.Name])
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", quoteIdent(idx.Name), quoteIdent(idx.Name)))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s`,
		quoteIdent(c.schema.Name),
		strings.Join(cols, ", "),
		placeholders,
		strings.Join(updates, ", "),
	)

	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("collection %s: put %s: %w", c.schema.Name, key, ErrConstraint)
		}
		return fmt.Errorf("collection %s: put %s: %w", c.schema.Name, key, err)
	}
	return nil
}

// Get returns the record stored under key, or ErrNotFound.
func (c *Collection) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, quoteIdent(c.schema.Name))

	var data []byte
	err := c.q.QueryRowContext(ctx, query, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collection %s: get %s: %w", c.schema.Name, key, err)
	}
	return data, nil
}

// GetAll returns every record in the collection, ordered by primary key.
func (c *Collection) GetAll(ctx context.Context) ([][]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s ORDER BY id`, quoteIdent(c.schema.Name))
	return c.queryRecords(ctx, query)
}

// LookupByIndex returns every record whose indexed field equals value,
// ordered by primary key. An empty slice means no match. The index must be
// declared in the collection's schema.
func (c *Collection) LookupByIndex(ctx context.Context, indexName, value string) ([][]byte, error) {
	if _, ok := c.indexSpec(indexName); !ok {
		return nil, fmt.Errorf("collection %s: index %q: %w", c.schema.Name, indexName, ErrUnknownCollection)
	}

	query := fmt.Sprintf(
		`SELECT data FROM %s WHERE %s = ? ORDER BY id`,
		quoteIdent(c.schema.Name), quoteIdent(indexName),
	)
	return c.queryRecords(ctx, query, value)
}

// Delete removes the record and its index entries. Deleting an absent key is
// a no-op.
func (c *Collection) Delete(ctx context.Context, key string) error {
	if c.readonly {
		return fmt.Errorf("collection %s: delete %s: %w", c.schema.Name, key, ErrReadOnlyTx)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoteIdent(c.schema.Name))
	if _, err := c.q.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("collection %s: delete %s: %w", c.schema.Name, key, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(c.schema.Name))

	var n int
	if err := c.q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("collection %s: count: %w", c.schema.Name, err)
	}
	return n, nil
}

func (c *Collection) queryRecords(ctx context.Context, query string, args ...any) ([][]byte, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collection %s: query: %w", c.schema.Name, err)
	}
	defer rows.Close()

	records := [][]byte{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("collection %s: scanning row: %w", c.schema.Name, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collection %s: iterating rows: %w", c.schema.Name, err)
	}
	return records, nil
}

// quoteIdent quotes a schema-declared identifier for use in SQL. Identifiers
// only ever come from the compile-time schema, never from callers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
