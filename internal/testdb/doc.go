//go:build integration

// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database.
//
// Tests are skipped when no database URL is configured. The schema is
// applied once per test binary from the embedded goose migrations, and
// ResetTables truncates the inkpipe tables so that each test starts from
// an empty queue. Queue tests exercise row locking across connections, so
// they commit their writes instead of running inside a rolled-back
// transaction; WithTx remains available for tests that only read and write
// through a single connection.
//
// Typical usage:
//
//	func TestClaim(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.ResetTables(t, db)
//	    ...
//	}
package testdb
