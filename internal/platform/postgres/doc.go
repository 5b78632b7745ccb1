// Package postgres implements the job queue and the executors' repositories
// on PostgreSQL through database/sql and the pgx driver.
//
// Every store accepts a store.DBTX so it can run against a pool or inside a
// caller's transaction. Multi-statement operations (claiming a caption and
// chaining its embed, saving a vector with its content hash) run in one
// transaction; when the store is already bound to a transaction they join it.
//
// Database errors are translated with MapError into the sentinel errors of
// the store package.
package postgres
