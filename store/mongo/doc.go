// Package mongo provides a MongoDB-backed workflow.Store using the
// official driver (v2). Updates are optimistic: the replace filter
// matches on both instance ID and version, so a stale writer gets
// concierge.ErrConcurrentModification and retries from a fresh read.
package mongo
