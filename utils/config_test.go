package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8000/rpc", cfg.Endpoint)
	assert.Equal(t, "test", cfg.Namespace)
	assert.Equal(t, "test", cfg.Database)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "schema.json", cfg.SchemaFile)
	assert.Empty(t, cfg.Username)
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `endpoint: ws://db.internal:8000/rpc
namespace: prod
database: app
migrations_dir: db/migrations
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mirage.yaml"), []byte(content), 0644))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ws://db.internal:8000/rpc", cfg.Endpoint)
	assert.Equal(t, "prod", cfg.Namespace)
	assert.Equal(t, "app", cfg.Database)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	// Unset keys fall back to defaults.
	assert.Equal(t, "schema.json", cfg.SchemaFile)
}

func TestLoadConfigSurrealEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SURREAL_ENDPOINT", "ws://override:9000/rpc")
	t.Setenv("SURREAL_USER", "root")
	t.Setenv("SURREAL_PASS", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ws://override:9000/rpc", cfg.Endpoint)
	assert.Equal(t, "root", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
}
