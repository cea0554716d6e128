package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/memorylane/internal/database"
	"github.com/nikhilbhutani/memorylane/internal/database/dbtest"
	"github.com/nikhilbhutani/memorylane/migrations"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	require.NoError(t, database.RunMigrations(ctx, pool, migrations.FS))

	for _, table := range []string{"files", "stories", "schema_migrations"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
			table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	var applied int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
}
