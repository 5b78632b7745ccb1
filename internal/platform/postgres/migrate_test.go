package postgres_test

import (
	"context"
	"io/fs"
	"testing"

	"github.com/phrazzld/inkpipe/internal/platform/postgres"
	"github.com/phrazzld/inkpipe/internal/platform/postgres/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	t.Parallel()
	db, _ := newMock(t)

	err := postgres.Migrate(context.Background(), db, "sideways", quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, name := range files {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}
