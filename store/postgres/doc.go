// Package postgres provides a PostgreSQL-backed workflow.Store built on
// pgx/v5. Schema management is handled by embedded SQL migrations; see
// Store.Migrate.
//
// Concurrency control is optimistic: every instance row carries a
// version counter and UpdateInstance only applies when the caller's
// version matches the stored one. Competing writers get
// concierge.ErrConcurrentModification and retry from a fresh read.
package postgres
