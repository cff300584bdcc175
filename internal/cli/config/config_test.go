package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, FormatTable, cfg.Output.Format)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "metacheck:", cfg.Cache.Prefix)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "metacheck.db", cfg.Store.DSN)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, `
log:
  level: debug
output:
  format: json
cache:
  backend: redis
  ttl: 30s
  redis:
    addr: cache.internal:6380
    db: 2
store:
  enabled: true
  driver: postgres
  dsn: postgres://localhost/metacheck
server:
  address: ":9090"
`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "cache.internal:6380", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, ":9090", cfg.Server.Address)

	opts := cfg.Cache.Options()
	assert.Equal(t, "redis", opts.Backend)
	assert.Equal(t, 30*time.Second, opts.Settings.TTL)
	assert.Equal(t, 10000, opts.Settings.MaxEntries)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("METACHECK_OUTPUT_FORMAT", "json")
	t.Setenv("METACHECK_CACHE_BACKEND", "none")
	t.Setenv("METACHECK_SERVER_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"format", "output:\n  format: xml\n", "output.format"},
		{"backend", "cache:\n  backend: memcached\n", "cache.backend"},
		{"max entries", "cache:\n  max_entries: -1\n", "cache.max_entries"},
		{"driver", "store:\n  driver: mysql\n", "store.driver"},
		{"level", "log:\n  level: loud\n", "log.level"},
		{"dsn", "store:\n  enabled: true\n  dsn: \"\"\n", "store.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = FormatJSON
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = "redis:6379"
	cfg.Store.Enabled = true

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, loaded.Output.Format)
	assert.Equal(t, "redis", loaded.Cache.Backend)
	assert.Equal(t, "redis:6379", loaded.Cache.Redis.Addr)
	assert.True(t, loaded.Store.Enabled)
	assert.Equal(t, cfg.Cache.TTL, loaded.Cache.TTL)
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "xml"

	assert.Error(t, Save(filepath.Join(t.TempDir(), FileName), cfg))
}
