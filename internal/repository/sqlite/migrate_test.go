package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationStatuses_AllApplied(t *testing.T) {
	db := newTestDB(t)

	statuses, err := db.MigrationStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	for i, s := range statuses {
		assert.Equal(t, int64(i+1), s.Version)
		assert.True(t, s.Applied, "migration %d should be applied", s.Version)
	}
	assert.Equal(t, "00002_profiles.sql", statuses[1].Path)
}

func TestMigrateDown_ThenUp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	v, err := db.MigrateDown(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = db.MigrateDown(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	current, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	// user_profiles is gone after rolling back 00002.
	_, err = db.Conn().Exec(`SELECT 1 FROM user_profiles`)
	assert.Error(t, err)

	applied, err := db.MigrateUp(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, applied)

	applied, err = db.MigrateUp(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied, "second MigrateUp is a no-op")
}

func TestOpen_DoesNotMigrate(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	statuses, err := db.MigrationStatuses(context.Background())
	require.NoError(t, err)
	for _, s := range statuses {
		assert.False(t, s.Applied)
	}
}
