package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "database: runs.db\nformat: json\nsimulate_speed: 10\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "runs.db", cfg.Database)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep their default")
	assert.Equal(t, 10.0, cfg.SimulateSpeed)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database: runs.db\nlog_level: warn\n")
	t.Setenv("LABRUN_DB", "/tmp/env.db")
	t.Setenv("LABRUN_METRICS_FILE", "/tmp/labrun.prom")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/labrun.prom", cfg.MetricsFile)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "format: [json\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("LABRUN_SIM_SPEED", "fast")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "format: xml\nlog_level: loud\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid format "xml"`)
		assert.Contains(t, err.Error(), `invalid log level "loud"`)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
