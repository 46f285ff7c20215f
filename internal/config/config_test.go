package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.Games)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, 24*time.Hour, cfg.Redis.GameTTL)
	assert.Equal(t, 1500, cfg.Auth.StartingPoints)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omok.yaml")
	contents := `
server:
  port: 9090
storage:
  games: redis
  profiles: sqlite
database:
  dsn: /tmp/profiles.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv("OMOK_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("OMOK_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, BackendRedis, cfg.Storage.Games)
	assert.Equal(t, BackendSQLite, cfg.Storage.Profiles)
	assert.Equal(t, "/tmp/profiles.db", cfg.Database.DSN)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "sqlite games", mutate: func(c *Config) { c.Storage.Games = BackendSQLite }, wantErr: true},
		{name: "postgres profiles", mutate: func(c *Config) { c.Storage.Profiles = BackendPostgres }},
		{name: "unknown profiles", mutate: func(c *Config) { c.Storage.Profiles = "mongo" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:  ServerConfig{Port: 8080},
				Storage: StorageConfig{Games: BackendMemory},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
