// Package sqlite provides SQLite-backed persistence for chat sessions.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. A single database connection serves three store interfaces:
//
//   - SessionStore: the session registry
//   - HistoryStore: ordered conversation turns per session
//   - DocumentRegistry: uploads that have been indexed
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.ragchat/data/chat.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite
// locking in WAL mode with a busy timeout.
package sqlite
