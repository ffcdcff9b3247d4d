// Package sqlite provides a SQLite-based implementation of driven.ConnectorConfiguration.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Caching
//
// Entries are loaded once when the store is opened and served from memory.
// Every mutation runs in its own transaction and updates the cache only after
// the transaction commits.
//
// # Thread Safety
//
// All operations are thread-safe. Writers are serialised by the store and
// SQLite runs in WAL mode.
package sqlite
