package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Indexing.Concurrency)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = dir
	cfg.LogLevel = "debug"
	cfg.Embedding.Model = "voyage-code-3"

	require.NoError(t, Save(cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.Equal(t, "voyage-code-3", loaded.Embedding.Model)
}

func TestSave_WritesNoLeftoverTempFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = dir

	require.NoError(t, Save(cfg))

	_, err := os.Stat(filepath.Join(dir, "config.yaml.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidate_RejectsEmptyBaseURLs(t *testing.T) {
	cfg := Default()
	cfg.Embedding.BaseURL = ""
	assert.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("EIDETICMCP_LOG_LEVEL", "warn")
	cfg := Default()
	applyEnvOverrides(&cfg)
	assert.Equal(t, "warn", cfg.LogLevel)
}
