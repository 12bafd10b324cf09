package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `target:
  path: warehouse.db
  schema: analytics
  keep_open: true
  settings:
    memory_limit: 2GB
  extensions:
    - parquet
  attach:
    - alias: meta
      path: meta.db

plugins:
  - name: files
    impl: file
    options:
      directory: /exports

sources:
  - plugin: files
    schema: raw
    identifier: users
    meta:
      location: /data/users.csv

exports:
  - plugin: files
    schema: analytics
    identifier: daily
    sql: select 1 as day

state_path: custom/state.db
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, ConfigFileName, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Defaults fill in what the file omits.
	assert.Equal(t, DefaultEngine, cfg.Target.Engine)

	assert.Equal(t, "warehouse.db", cfg.Target.Path)
	assert.Equal(t, "analytics", cfg.Target.Schema)
	assert.True(t, cfg.Target.KeepOpen)
	assert.Equal(t, "2GB", cfg.Target.Settings["memory_limit"])
	assert.Equal(t, []string{"parquet"}, cfg.Target.Extensions)
	require.Len(t, cfg.Target.Attach, 1)
	assert.Equal(t, "meta", cfg.Target.Attach[0].Alias)

	require.Len(t, cfg.Plugins, 1)
	assert.Equal(t, "files", cfg.Plugins[0].Name)
	assert.Equal(t, "file", cfg.Plugins[0].Impl)
	assert.Equal(t, "/exports", cfg.Plugins[0].Options["directory"])

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "raw", cfg.Sources[0].Schema)
	assert.Equal(t, "/data/users.csv", cfg.Sources[0].Meta["location"])

	require.Len(t, cfg.Exports, 1)
	assert.Equal(t, "select 1 as day", cfg.Exports[0].SQL)

	assert.Equal(t, "custom/state.db", cfg.StatePath)
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultEngine, cfg.Target.Engine)
	assert.Equal(t, DefaultSchema, cfg.Target.Schema)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, ConfigFileName, sampleConfig)
	t.Setenv("DUCKBRIDGE_STATE_PATH", "/var/lib/duckbridge/state.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/duckbridge/state.db", cfg.StatePath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadFromDir(t *testing.T) {
	path := writeConfig(t, ConfigFileNameAlt, sampleConfig)

	cfg, err := LoadFromDir(filepath.Dir(path))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "warehouse.db", cfg.Target.Path)
}

func TestLoadFromDirAbsent(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0o644))

	nested := filepath.Join(root, "models", "staging")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, "", FindProjectRoot(filepath.Join(t.TempDir(), "elsewhere")))
}

func TestTargetValidate(t *testing.T) {
	tgt := TargetConfig{Engine: "duckdb"}
	require.NoError(t, tgt.Validate())

	tgt.Engine = ""
	require.Error(t, tgt.Validate())

	tgt.Engine = "oracle"
	err := tgt.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestToEngineConfig(t *testing.T) {
	tgt := TargetConfig{
		Path:       "w.db",
		Schema:     "main",
		Settings:   map[string]string{"threads": "2"},
		Extensions: []string{"json"},
		Attach:     []AttachConfig{{Alias: "m", Path: "m.db", Options: "READ_ONLY"}},
	}
	ec := tgt.ToEngineConfig()

	assert.Equal(t, "w.db", ec.Path)
	assert.Equal(t, "2", ec.Settings["threads"])
	assert.Equal(t, []string{"json"}, ec.Extensions)
	require.Len(t, ec.Attach, 1)
	assert.Equal(t, "READ_ONLY", ec.Attach[0].Options)
}

func TestExportToTargetConfig(t *testing.T) {
	exp := ExportConfig{
		Plugin:     "files",
		Schema:     "analytics",
		Identifier: "daily",
		Location:   "/exports/daily.parquet",
		Format:     "parquet",
		SQL:        "select 1",
	}
	target := exp.ToTargetConfig()

	assert.Equal(t, "analytics.daily", target.TableName())
	assert.Equal(t, "/exports/daily.parquet", target.Location.Path)
	assert.Equal(t, "parquet", target.Location.Format)
	assert.Equal(t, "select 1", target.CompiledSQL)
}
