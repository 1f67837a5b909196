// ABOUTME: SQLite-backed database owning the four qchat collections
// ABOUTME: Handles schema creation, idempotent migrations and transactional access

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrReadOnlyTx is returned when a write is attempted inside a read-only
// transaction.
var ErrReadOnlyTx = errors.New("write in read-only transaction")

// TxMode selects transactional access for WithTx.
type TxMode int

const (
	// ReadOnly transactions observe a consistent snapshot and reject writes.
	ReadOnly TxMode = iota
	// ReadWrite transactions serialize against each other; their writes
	// commit together or not at all.
	ReadWrite
)

// schemas is the durable layout: four collections, two of them with
// secondary indexes. Any change here must keep existing databases readable.
func schemas() []Schema {
	return []Schema{
		{Name: CollectionUsers, Indexes: []IndexSpec{{Name: "email", Unique: true}}},
		{Name: CollectionContacts, Indexes: []IndexSpec{{Name: "username"}}},
		{Name: CollectionMessages, Indexes: []IndexSpec{{Name: "contactId"}, {Name: "timestamp"}}},
		{Name: CollectionSettings},
	}
}

// DB owns the on-disk store and its collections. Construct one at startup
// with Open and pass it by handle to every collaborator; there is no hidden
// singleton.
type DB struct {
	db      *sql.DB
	logger  *slog.Logger
	schemas map[string]Schema

	// writeMu serializes read-write transactions so overlapping writers
	// block rather than interleave.
	writeMu sync.Mutex
}

// Open opens or creates the database at path. It is idempotent: the schema
// is created on first use and migrated in place afterwards. Parent
// directories are created if needed. Failure to open the medium surfaces
// ErrStorageUnavailable.
func Open(path string) (*DB, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating database directory: %v", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStorageUnavailable, err)
	}

	// WAL lets readers proceed while a writer is active
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL mode: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: setting busy timeout: %v", ErrStorageUnavailable, err)
	}

	d := &DB{
		db:      db,
		logger:  logger,
		schemas: make(map[string]Schema),
	}
	for _, s := range schemas() {
		d.schemas[s.Name] = s
	}

	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", ErrStorageUnavailable, err)
	}
	if err := d.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %v", ErrStorageUnavailable, err)
	}

	logger.Info("store initialized", "path", path)
	return d, nil
}

// createSchema creates the collection tables and their indexes if they don't
// exist. Record data and index columns share a row, so index maintenance is
// part of every primary write.
func (d *DB) createSchema() error {
	var ddl strings.Builder
	for _, s := range schemas() {
		cols := []string{"id TEXT PRIMARY KEY", "data TEXT NOT NULL"}
		for _, idx := range s.Indexes {
			cols = append(cols, fmt.Sprintf("%s TEXT NOT NULL DEFAULT ''", quoteIdent(idx.Name)))
		}
		fmt.Fprintf(&ddl, "CREATE TABLE IF NOT EXISTS %s (%s);\n",
			quoteIdent(s.Name), strings.Join(cols, ", "))

		for _, idx := range s.Indexes {
			unique := ""
			if idx.Unique {
				unique = "UNIQUE "
			}
			fmt.Fprintf(&ddl, "CREATE %sINDEX IF NOT EXISTS idx_%s_%s ON %s(%s);\n",
				unique, s.Name, idx.Name, quoteIdent(s.Name), quoteIdent(idx.Name))
		}
	}

	_, err := d.db.Exec(ddl.String())
	return err
}

// runMigrations brings databases created by earlier layouts up to the current
// schema. SQLite has no ADD COLUMN IF NOT EXISTS, so each index column is
// checked against pragma_table_info first. Safe to run repeatedly.
func (d *DB) runMigrations() error {
	for _, s := range schemas() {
		for _, idx := range s.Indexes {
			var exists int
			err := d.db.QueryRow(
				`SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, s.Name, idx.Name,
			).Scan(&exists)
			if err == nil {
				continue
			}
			if err != sql.ErrNoRows {
				return fmt.Errorf("checking column %s.%s: %w", s.Name, idx.Name, err)
			}

			alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s TEXT NOT NULL DEFAULT ''`,
				quoteIdent(s.Name), quoteIdent(idx.Name))
			if _, err := d.db.Exec(alter); err != nil {
				return fmt.Errorf("adding %s column to %s: %w", idx.Name, s.Name, err)
			}
			d.logger.Info("applied migration", "column", idx.Name, "collection", s.Name)
		}
	}
	return nil
}

// Close closes the database. Tests and shutdown paths use this; normal
// operation holds the store open for the process lifetime.
func (d *DB) Close() error {
	d.logger.Info("closing store")
	return d.db.Close()
}

// Collection returns a handle for ad-hoc single-operation access outside a
// transaction. Each operation is still atomic with respect to the collection.
func (d *DB) Collection(name string) (*Collection, error) {
	s, ok := d.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return &Collection{q: d.db, schema: s}, nil
}

// Tx provides access to the collections a transaction declared. Writes made
// through it commit together when the body returns nil and roll back together
// otherwise.
type Tx struct {
	tx       *sql.Tx
	mode     TxMode
	declared map[string]Schema
}

// Collection returns the transactional handle for a declared collection.
// Asking for an undeclared collection is an error: the transaction only holds
// the collections it named.
func (t *Tx) Collection(name string) (*Collection, error) {
	s, ok := t.declared[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not declared in transaction", ErrUnknownCollection, name)
	}
	return &Collection{q: t.tx, schema: s, readonly: t.mode == ReadOnly}, nil
}

// WithTx runs fn with exclusive access to the named collections. In ReadWrite
// mode all writes inside fn are committed together; any error from fn aborts
// with nothing visible to later readers. ReadWrite transactions serialize:
// a second writer blocks until the first completes. The database never
// retries a failed transaction; retry policy belongs to the caller.
func (d *DB) WithTx(ctx context.Context, collections []string, mode TxMode, fn func(tx *Tx) error) error {
	declared := make(map[string]Schema, len(collections))
	for _, name := range collections {
		s, ok := d.schemas[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
		}
		declared[name] = s
	}

	if mode == ReadWrite {
		d.writeMu.Lock()
		defer d.writeMu.Unlock()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrStorageUnavailable, err)
	}

	if err := fn(&Tx{tx: tx, mode: mode, declared: declared}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			d.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
