package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"room-staging-backend/internal/database"
)

func TestMigrationNames(t *testing.T) {
	names, err := database.MigrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_staging_attempts.sql", "002_workspace_events.sql"}, names)
}

func TestPending(t *testing.T) {
	names := []string{"001_a.sql", "002_b.sql", "003_c.sql"}
	applied := map[string]database.AppliedMigration{
		"002_b.sql": {Name: "002_b.sql", AppliedAt: time.Now()},
	}

	assert.Equal(t, []string{"001_a.sql", "003_c.sql"}, database.Pending(names, applied))
	assert.Empty(t, database.Pending(names[1:2], applied))
}
