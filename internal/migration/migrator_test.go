package migration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/testutil"
)

func TestParseDatabaseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgres", DatabaseTypePostgres, false},
		{"postgresql", DatabaseTypePostgres, false},
		{"pg", DatabaseTypePostgres, false},
		{"POSTGRES", DatabaseTypePostgres, false},
		{"mysql", DatabaseTypeMySQL, false},
		{"mariadb", DatabaseTypeMySQL, false},
		{"sqlite", DatabaseTypeSQLite, false},
		{"sqlite3", DatabaseTypeSQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result, err := ParseDatabaseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNewMigrator_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewMigrator(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")

	_, err = NewMigrator(&Config{DatabaseType: DatabaseTypeSQLite})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")

	_, err = NewMigrator(&Config{DatabaseType: "oracle", DatabaseURL: "db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func newSQLiteMigrator(t *testing.T) *Migrator {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	migrator, err := NewMigrator(&Config{
		DatabaseType: DatabaseTypeSQLite,
		DatabaseURL:  dbPath,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })
	return migrator
}

func TestMigrator_SQLite_UpDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	migrator := newSQLiteMigrator(t)
	ctx := testutil.TestContextWithTimeout(t, 30*time.Second)

	version, dirty, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Up(ctx))

	version, dirty, err = migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Up again is a no-op, not an error.
	require.NoError(t, migrator.Up(ctx))

	statuses, err := migrator.StatusAll(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "create_extraction_runs", statuses[0].Name)
	assert.True(t, statuses[0].Applied)

	info, err := migrator.CurrentInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), info.CurrentVersion)
	assert.Equal(t, 1, info.TotalMigrations)
	assert.Equal(t, 1, info.AppliedMigrations)
	assert.Equal(t, 0, info.PendingMigrations)

	require.NoError(t, migrator.Down(ctx))

	version, _, err = migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestMigrator_SQLite_CreatesRunsTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	migrator := newSQLiteMigrator(t)
	ctx := context.Background()
	require.NoError(t, migrator.Up(ctx))

	_, err := migrator.db.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, workspace_key, function_name, state) VALUES (?, ?, ?, ?)`,
		"run-1", "abcd1234", "ParsePerson", "succeeded")
	require.NoError(t, err)

	var count int
	err = migrator.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM extraction_runs WHERE state = ?`, "succeeded").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrator_AvailableMigrationsSorted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	migrator := newSQLiteMigrator(t)

	migrations, err := migrator.availableMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].version, migrations[i-1].version)
	}
}

func TestNewMigratorFromURL_InvalidDriver(t *testing.T) {
	t.Parallel()

	_, err := NewMigratorFromURL("oracle", "db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database type")
}

func TestNewMigratorFromHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	migrator, err := NewMigratorFromHistory(config.HistoryConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })

	ctx := context.Background()
	require.NoError(t, migrator.Up(ctx))

	version, _, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestCLI_Output(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	migrator := newSQLiteMigrator(t)
	cli := NewCLI(migrator)

	var out bytes.Buffer
	cli.SetOutput(&out)
	ctx := context.Background()

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, out.String(), "No migrations applied yet")

	out.Reset()
	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, out.String(), "Current version: 1")

	out.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	assert.Contains(t, out.String(), "create_extraction_runs")
	assert.Contains(t, out.String(), "true")

	out.Reset()
	require.NoError(t, cli.RunDown(ctx))
	assert.Contains(t, out.String(), "Rollback complete")
}
