package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrationsCreateTables(t *testing.T) {
	var all strings.Builder
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		data, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		require.NoError(t, err)
		all.Write(data)
	}

	for _, table := range []string{"events", "game_results", "bet_slips", "bet_selections", "bet_slip_history"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	assert.Error(t, MigrateDown("postgres://unused", 0, nil))
}
