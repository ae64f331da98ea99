// Package sqlite persists sync run history in SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The index itself is never stored locally; the database
// holds only the audit trail of sync runs.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files
// and is applied at most once, recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.nephra/data/history.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store opens SQLite in WAL
// mode with a busy timeout.
package sqlite
