// Package migrations embeds the goose SQL migrations for the PostgreSQL
// schema so the binary and the test helpers apply the same files.
package migrations

import "embed"

// FS holds the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS

// TableName is the goose version table.
const TableName = "schema_migrations"
