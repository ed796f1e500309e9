// Package store persists the operation log in SQLite.
//
// The log is strictly append-only: rows are inserted at the tail in plan
// order, identified by operation ID, and never updated or deleted. Appends
// are idempotent (ON CONFLICT DO NOTHING), which makes interrupted runs
// naturally resumable - a retry re-reads the log, plans the remainder and
// appends only what is missing.
package store
