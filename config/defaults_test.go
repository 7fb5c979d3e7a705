package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultServerConfig(), cfg.Server)
	assert.Equal(t, DefaultStreamConfig(), cfg.Stream)
	assert.Equal(t, DefaultClientConfig(), cfg.Client)
	assert.Equal(t, DefaultRedisConfig(), cfg.Redis)
	assert.Equal(t, DefaultDatabaseConfig(), cfg.Database)
	assert.Equal(t, DefaultLogConfig(), cfg.Log)
	assert.Equal(t, DefaultTelemetryConfig(), cfg.Telemetry)
}

func TestDefaultStreamConfig(t *testing.T) {
	s := DefaultStreamConfig()
	assert.Equal(t, 10, s.InitialCapacity)
	assert.Equal(t, 1.5, s.GrowthFactor)
	assert.Equal(t, 10, s.RepeatedFieldCount)
	assert.Equal(t, "leading", s.ShrinkPolicy)
	assert.Zero(t, s.PaceHz)
}

func TestDefaultServerConfig(t *testing.T) {
	s := DefaultServerConfig()
	assert.Equal(t, 8080, s.HTTPPort)
	assert.Equal(t, 9091, s.MetricsPort)
	assert.Equal(t, 15*time.Second, s.ShutdownTimeout)
	assert.Empty(t, s.JWTSecret)
}

func TestDefaultClientConfig(t *testing.T) {
	c := DefaultClientConfig()
	assert.Equal(t, "ws", c.Transport)
	assert.Equal(t, "cexp", c.Generator)
	assert.Equal(t, "accumulate", c.Receptor)
	assert.NotNil(t, c.Overrides)
}

func TestDefaultRedisConfig(t *testing.T) {
	r := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", r.Addr)
	assert.Equal(t, "seriesflow:stream", r.Key)
	assert.Equal(t, 5*time.Second, r.BlockTimeout)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	d := DefaultDatabaseConfig()
	assert.False(t, d.Enabled)
	assert.Equal(t, "sqlite", d.Driver)
	assert.True(t, d.AutoMigrate)
	assert.Equal(t, "seriesflow.db", d.DSN())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "runs", SSLMode: "require"},
			want: "host=db port=5432 user=u password=p dbname=runs sslmode=require",
		},
		{
			name: "postgres default ssl mode",
			cfg:  DatabaseConfig{Driver: "pg", Host: "db", Port: 5432, User: "u", Name: "runs"},
			want: "host=db port=5432 user=u password= dbname=runs sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "runs"},
			want: "u:p@tcp(db:3306)/runs?parseTime=true&charset=utf8mb4",
		},
		{
			name: "sqlite",
			cfg:  DatabaseConfig{Driver: "sqlite3", Name: "/tmp/runs.db"},
			want: "/tmp/runs.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestDefaultLogAndTelemetryConfig(t *testing.T) {
	assert.Equal(t, "info", DefaultLogConfig().Level)
	assert.Equal(t, []string{"stdout"}, DefaultLogConfig().OutputPaths)
	assert.False(t, DefaultTelemetryConfig().Enabled)
	assert.Equal(t, "seriesflow", DefaultTelemetryConfig().ServiceName)
}
