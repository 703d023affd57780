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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", c.InputDir)
	assert.Equal(t, "./schemas/default.yaml", c.SchemaFile)
	assert.Equal(t, 4, c.MaxConcurrency)
	assert.True(t, c.ContinueOnErrors())
	assert.Equal(t, 30*time.Second, c.DocumentTimeout)
	assert.True(t, c.Output.Merged())
	assert.Equal(t, FormatXLSX, c.Output.Format)
	assert.Equal(t, "Data.xlsx", c.Output.MergedFileName)
	assert.Equal(t, "excels.zip", c.Output.ZipFileName)
	assert.Equal(t, ":8000", c.Server.Addr)
	assert.Equal(t, 50, c.Server.MaxFiles)
	assert.Equal(t, int64(10<<20), c.Server.MaxFileSize)
	assert.Equal(t, int64(50<<20), c.Server.MaxTotalSize)
	assert.Equal(t, 10*time.Second, c.Server.RateLimitWindow)
	assert.Equal(t, 20, c.Server.RateLimitMaxCalls)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.History.DBPath)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
input_dir: ./in
max_concurrency: 8
continue_on_error: false
document_timeout: 5s
output:
  merge: false
  format: csv
  source_column: Nguồn (file)
history:
  db_path: ./history.db
server:
  addr: ":9000"
  rate_limit_window: 1m
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./in", c.InputDir)
	assert.Equal(t, 8, c.MaxConcurrency)
	assert.False(t, c.ContinueOnErrors())
	assert.Equal(t, 5*time.Second, c.DocumentTimeout)
	assert.False(t, c.Output.Merged())
	assert.Equal(t, FormatCSV, c.Output.Format)
	assert.Equal(t, "Nguồn (file)", c.Output.SourceColumn)
	assert.Equal(t, "./history.db", c.History.DBPath)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, time.Minute, c.Server.RateLimitWindow)
	assert.Equal(t, "./output", c.OutputDir, "unset keys keep defaults")
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "output:\n  format: pdf\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "max_concurrency: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "input_dir: [unclosed\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"HDON_SCHEMA_FILE":          "builtin:master",
		"HDON_MAX_CONCURRENCY":      "2",
		"HDON_OUTPUT_MERGE":         "false",
		"HDON_RATE_LIMIT_WINDOW":    "30s",
		"HDON_MAX_FILE_SIZE":        "1024",
		"HDON_ARCHIVE_ON_SUCCESS":   "true",
		"HDON_RATE_LIMIT_MAX_CALLS": " ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := &Config{}
	require.NoError(t, applyEnv(c, lookup))
	applyDefaults(c)

	assert.Equal(t, "builtin:master", c.SchemaFile)
	assert.Equal(t, 2, c.MaxConcurrency)
	assert.False(t, c.Output.Merged())
	assert.Equal(t, 30*time.Second, c.Server.RateLimitWindow)
	assert.Equal(t, int64(1024), c.Server.MaxFileSize)
	assert.True(t, c.ArchiveOnSuccess)
	assert.Equal(t, 20, c.Server.RateLimitMaxCalls, "blank values are ignored")
}

func TestEnvOverrideErrors(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "HDON_MAX_CONCURRENCY" {
			return "many", true
		}
		return "", false
	}
	err := applyEnv(&Config{}, lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HDON_MAX_CONCURRENCY")
}

func TestLoadReadsProcessEnv(t *testing.T) {
	t.Setenv("HDON_SERVER_ADDR", "127.0.0.1:8081")
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", c.Server.Addr)
}
