// Package sqlite keeps the crawl ledger in ~/.runit/data/runit.db using the
// cgo-free modernc.org/sqlite driver. The ledger records crawl jobs started
// from this machine with their last known status, plus the archived tail of
// each job's log once its stream ends.
//
// Migrations in migrations/ run in order on open; applied versions are
// tracked in schema_migrations. The database runs in WAL mode with a busy
// timeout so a TUI and a CLI process can share it.
package sqlite
