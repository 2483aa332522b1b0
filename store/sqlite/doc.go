// Package sqlite provides a SQLite-backed workflow.Store built on the
// pure-Go modernc.org/sqlite driver. No cgo is required, which keeps
// the store usable in tests and single-binary deployments.
//
// Semantics match the PostgreSQL store, including the optimistic
// version check on UpdateInstance.
package sqlite
