package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DATA_DIR", "STORAGE_BACKEND", "MONGODB_URI", "MONGODB_DB_NAME", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "InspectionService.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, BackendDuckDB, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dir, "templates"), cfg.Checklist.TemplateDirectory)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<InspectionService>"))
}

func TestLoadConfig_ReadsExisting(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "InspectionService.config")
	xmlDoc := `<?xml version="1.0" encoding="UTF-8"?>
<InspectionService>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Storage><Backend>memory</Backend><DataDirectory>/srv/vistoria</DataDirectory></Storage>
  <Drafts><MaxDrafts>10</MaxDrafts><MaxAgeMinutes>15</MaxAgeMinutes></Drafts>
</InspectionService>`
	require.NoError(t, os.WriteFile(path, []byte(xmlDoc), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "/srv/vistoria", cfg.Storage.DataDirectory)
	assert.Equal(t, 10, cfg.Drafts.MaxDrafts)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, "info", cfg.Advanced.LogLevel)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("PORT", "7070")
	t.Setenv("DATA_DIR", "/var/lib/vistoria")
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("MONGODB_DB_NAME", "inspections")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(dir, "InspectionService.config"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/vistoria", cfg.Storage.DataDirectory)
	assert.Equal(t, "/var/lib/vistoria/images", cfg.Storage.ImageDirectory)
	assert.Equal(t, "/var/lib/vistoria/inspections.duckdb", cfg.Storage.DuckDBFile)
	assert.Equal(t, BackendMongo, cfg.Storage.Backend)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "inspections", cfg.Storage.MongoDatabase)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestLoadConfig_InvalidXML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "InspectionService.config")
	require.NoError(t, os.WriteFile(path, []byte("<InspectionService><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "sqlite"
	cfg.Server.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
	assert.Contains(t, err.Error(), "invalid port")

	cfg = DefaultConfig()
	cfg.Storage.Backend = BackendMongo
	cfg.Storage.MongoURI = ""
	assert.ErrorContains(t, cfg.Validate(), "MongoURI")
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(dir, "data")
	cfg.Storage.ImageDirectory = filepath.Join(dir, "data", "images")

	require.NoError(t, cfg.EnsureDirectories())

	_, err := os.Stat(cfg.Storage.ImageDirectory)
	assert.NoError(t, err)
}
