package migration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/BaSui01/seriesflow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	cfg := config.DefaultDatabaseConfig()
	cfg.Name = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgres", DatabaseTypePostgres, false},
		{"postgresql", DatabaseTypePostgres, false},
		{"pg", DatabaseTypePostgres, false},
		{"mysql", DatabaseTypeMySQL, false},
		{"mariadb", DatabaseTypeMySQL, false},
		{"sqlite", DatabaseTypeSQLite, false},
		{"sqlite3", DatabaseTypeSQLite, false},
		{"POSTGRES", DatabaseTypePostgres, false},
		{"invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
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

func TestAvailableMigrations_AllDialectsAgree(t *testing.T) {
	var names [][]string
	for _, dt := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL, DatabaseTypeSQLite} {
		files, err := availableMigrations(dt)
		require.NoError(t, err, dt)
		require.NotEmpty(t, files, dt)

		var got []string
		for i, f := range files {
			if i > 0 {
				assert.Greater(t, f.version, files[i-1].version)
			}
			got = append(got, f.name)
		}
		names = append(names, got)
	}
	assert.Equal(t, names[0], names[1])
	assert.Equal(t, names[0], names[2])
	assert.Equal(t, "create_runs", names[0][0])
}

func TestNewMigrator_InvalidConfig(t *testing.T) {
	_, err := NewMigrator(nil, Config{DatabaseType: DatabaseTypeSQLite})
	assert.ErrorContains(t, err, "database handle is required")

	_, err = NewMigratorFromConfig(config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrator_SQLite_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	m, err := NewMigratorFromConfig(sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, m.Up(ctx))
	// 重复执行没有变化也不报错
	require.NoError(t, m.Up(ctx))

	info, err := m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), info.CurrentVersion)
	assert.Equal(t, info.TotalMigrations, info.AppliedMigrations)
	assert.Zero(t, info.PendingMigrations)

	require.NoError(t, m.Down(ctx))
	version, _, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)

	require.NoError(t, m.DownAll(ctx))
	version, _, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestUp_ReturnsInfo(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	info, err := Up(context.Background(), sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, info.AppliedMigrations)
}

func TestCLI_Output(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	m, err := NewMigratorFromConfig(sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	var out bytes.Buffer
	cli := NewCLI(m)
	cli.SetOutput(&out)
	ctx := context.Background()

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, out.String(), "No migrations applied yet")

	out.Reset()
	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, out.String(), "Current version: 2")

	out.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	assert.Contains(t, out.String(), "create_runs")
	assert.Contains(t, out.String(), "Total: 2, Applied: 2, Pending: 0")

	out.Reset()
	require.NoError(t, cli.RunGoto(ctx, 1))
	assert.Contains(t, out.String(), "Current version: 1")
}
