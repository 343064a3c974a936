package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conform.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "cases", cfg.Cases)
	assert.Equal(t, filepath.Join("..", "build"), cfg.Build)
	assert.Equal(t, "findany", cfg.Tool)
	assert.Equal(t, "tmp", cfg.Staging)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.Jobs)
	assert.Empty(t, cfg.DB)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load("", noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `cases: scenarios
build: /opt/build
timeout: 5s
jobs: 4
db: history.db
`)
	dir := filepath.Dir(path)

	cfg, err := load(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scenarios"), cfg.Cases)
	assert.Equal(t, "/opt/build", cfg.Build)
	assert.Equal(t, "findany", cfg.Tool, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, "tmp"), cfg.Staging)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.DB)
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := load(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "findany", cfg.Tool)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "cases: x\nkeep: true\n")

	_, err := load(path, noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "cases: [unterminated\n")

	_, err := load(path, noEnv)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := load(writeConfig(t, "jobs: 0\n"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs must be at least 1")

	_, err = load(writeConfig(t, "timeout: -1s\n"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout must not be negative")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "tool: fromfile\njobs: 2\n")

	cfg, err := load(path, env(map[string]string{
		"CONFORM_TOOL":    "fromenv",
		"CONFORM_TIMEOUT": "0s",
		"CONFORM_JOBS":    "8",
		"CONFORM_DB":      "/var/conform.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "fromenv", cfg.Tool)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "/var/conform.db", cfg.DB)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := load("", env(map[string]string{"CONFORM_TIMEOUT": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFORM_TIMEOUT")

	_, err = load("", env(map[string]string{"CONFORM_JOBS": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFORM_JOBS")
}

func TestHarness(t *testing.T) {
	cfg := Default()
	cfg.Jobs = 3

	h := cfg.Harness()
	assert.Equal(t, cfg.Cases, h.CasesDir)
	assert.Equal(t, cfg.Build, h.BuildDir)
	assert.Equal(t, cfg.Tool, h.Tool)
	assert.Equal(t, cfg.Staging, h.StagingDir)
	assert.Equal(t, cfg.Timeout, h.Timeout)
	assert.Equal(t, 3, h.Jobs)
}
