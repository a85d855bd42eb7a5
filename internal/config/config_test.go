package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  env: production
database:
  driver: sqlite
  url: file::memory:
upload:
  max_size: 1048576
  reject_unknown_types: false
storage:
  type: minio
  bucket: cabinets
`)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_REJECT_UNKNOWN_TYPES", "true")
	t.Setenv("STORAGE_BUCKET", "cabinet-photos")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxSize)
	assert.True(t, cfg.Upload.RejectUnknownTypes)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, "cabinet-photos", cfg.Storage.Bucket)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, "general", cfg.Upload.DefaultCategory)
	assert.True(t, cfg.Upload.RejectUnknownTypes)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 15*time.Minute, cfg.SignedURLTTL())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_IgnoresMalformedEnvNumbers(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}
