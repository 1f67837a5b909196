// Package store provides the on-device persistence layer for qchat using
// SQLite.
//
// # Architecture
//
// The package has two layers:
//
//   - Collection: the storage primitive. A durable map from primary key to a
//     JSON-encoded record, with optional secondary indexes declared by a
//     Schema. Each collection is one SQLite table; index values live in
//     columns of the same row as the record, so a write can never leave an
//     index out of step with its data.
//   - DB: owns the fixed set of collections (users, contacts, messages,
//     settings), creates and migrates the schema on Open, and groups
//     operations into transactions via WithTx. Domain wrappers (SaveUser,
//     GetMessagesFor, ...) cover the operations the rest of the app needs.
//
// # Durable schema
//
// Four collections, matching the layout written by earlier versions of the
// app:
//
//   - users: unique index on email
//   - contacts: index on username
//   - messages: indexes on contactId and timestamp
//   - settings: singleton under the key "main", no secondary index
//
// Records round-trip through JSON with the original field names (id, email,
// createdAt, contactId, isOutgoing, ...), so databases written by a previous
// version stay readable.
//
// # SQLite configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// # Transactions
//
// WithTx runs a body with access to only the collections it declares, in
// ReadOnly or ReadWrite mode. Read-write transactions serialize against each
// other; a failing body rolls back every write it made. The store never
// retries on its own.
//
// # Error handling
//
//   - ErrNotFound: requested record does not exist
//   - ErrConstraint: a unique index rejected a write
//   - ErrStorageUnavailable: the medium cannot be opened or written
//   - ErrUnknownCollection: collection or index not part of the schema
//   - ErrReadOnlyTx: write attempted in a read-only transaction
//
// All methods accept context.Context for cancellation support.
package store
