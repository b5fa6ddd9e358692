// Package store persists identities, tokens and verification records in a
// SQL database. It implements auth.Store over database/sql and works with
// both the postgres (lib/pq) and sqlite3 drivers; driver-specific
// constraint errors are translated into auth.ErrDuplicate so the core
// never sees driver error codes.
package store
