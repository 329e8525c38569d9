package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TASKMEM_DATA_DIR", "")

	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "local", env.Env)
	assert.Equal(t, "3100", env.HTTPPort)
	assert.Equal(t, "default", env.ProjectID)
	assert.Equal(t, "mcp_tool", env.Operator)
	assert.Equal(t, 1000, env.MaxListLimit)
	assert.Equal(t, filepath.Join(home, ".taskmem"), env.DataDir)
	assert.Equal(t, slog.LevelInfo, env.SlogLevel())
}

func TestLoadEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKMEM_DATA_DIR", dir)
	t.Setenv("TASKMEM_HTTP_PORT", "9000")
	t.Setenv("TASKMEM_PROJECT_ID", "proj-a")
	t.Setenv("TASKMEM_LOG_LEVEL", "debug")
	t.Setenv("TASKMEM_MAX_LIST_LIMIT", "50")

	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, dir, env.DataDir)
	assert.Equal(t, "9000", env.HTTPPort)
	assert.Equal(t, "proj-a", env.ProjectID)
	assert.Equal(t, 50, env.MaxListLimit)
	assert.Equal(t, slog.LevelDebug, env.SlogLevel())
}

func TestLoadEnv_BadInt(t *testing.T) {
	t.Setenv("TASKMEM_MAX_LIST_LIMIT", "lots")
	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestSlogLevel_Fallback(t *testing.T) {
	var nilEnv *BaseEnv
	assert.Equal(t, slog.LevelInfo, nilEnv.SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&BaseEnv{LogLevel: "loud"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&BaseEnv{LogLevel: "warn"}).SlogLevel())
}
