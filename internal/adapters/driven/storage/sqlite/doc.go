// Package sqlite provides SQLite-backed caches for the pipeline.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database file backs both caches:
//
//   - ResponseCache: source bodies with their ETag and Last-Modified validators
//   - EnhancementCache: AI-authored fields keyed by record fingerprint and targets
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store uses database-level
// locking provided by SQLite in WAL mode.
package sqlite
