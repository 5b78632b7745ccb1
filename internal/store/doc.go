// Package store defines the persistence primitives shared by every storage
// backend: the DBTX abstraction over *sql.DB and *sql.Tx, transaction helpers,
// and the sentinel errors callers match with errors.Is.
package store
