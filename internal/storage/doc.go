// Package storage keeps the last successful fetch for each query in a SQLite
// database (cache.db in the data directory, default ./data).
//
// Snapshots are keyed by the normalized query, so a later run with the same
// keyword and filters can fall back to cached results when the search API is
// unreachable. The payload is opaque JSON owned by the fetch package.
package storage
