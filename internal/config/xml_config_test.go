package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the override variables for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DATA_DIR", "DUCKDB_TEMP_DIR", "LOG_LEVEL", "MAX_UPLOAD_SIZE", "ANALYSIS_DELAY_MS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "insightforge.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dir, "data", "temp"), cfg.GetTempDir())
	assert.Equal(t, filepath.Join(dir, "data", "preferences.yaml"), cfg.Storage.PreferencesFile)
	assert.Equal(t, 1500*time.Millisecond, cfg.AnalysisDelay())

	size, err := cfg.MaxUploadBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(5*1024*1024), size)

	// Second load reads the file back
	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server, again.Server)
	assert.Equal(t, cfg.Processing, again.Processing)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_UPLOAD_SIZE", "1MiB")
	t.Setenv("ANALYSIS_DELAY_MS", "0")

	cfg, err := LoadConfig(filepath.Join(dir, "insightforge.config"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, log.DEBUG, cfg.GetLogLevel())
	assert.Equal(t, time.Duration(0), cfg.AnalysisDelay())

	size, err := cfg.MaxUploadBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1024*1024), size)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ANALYSIS_DELAY_MS=250\n"), 0644))

	cfg, err := LoadConfig(filepath.Join(dir, "insightforge.config"))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.AnalysisDelay())
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"malformed xml", "<InsightForge><Server>"},
		{"bad upload size", "<InsightForge><Server><Port>8090</Port></Server><Storage><MaxUploadSize>lots</MaxUploadSize></Storage></InsightForge>"},
		{"bad port", "<InsightForge><Server><Port>70000</Port></Server></InsightForge>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "insightforge.config")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestGetLogLevel(t *testing.T) {
	tests := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"WARN":    log.WARN,
		"warning": log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"":        log.INFO,
		"verbose": log.INFO,
	}
	for in, want := range tests {
		cfg := DefaultConfig()
		cfg.Advanced.LogLevel = in
		assert.Equal(t, want, cfg.GetLogLevel(), "level %q", in)
	}
}

func TestGetAllowOrigins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.AllowOrigins = " http://a.test , http://b.test,"
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.GetAllowOrigins())

	cfg.Server.AllowOrigins = ""
	assert.Equal(t, []string{"*"}, cfg.GetAllowOrigins())
}

func TestEnsureDirectories(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "insightforge.config"))
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, d := range []string{cfg.GetDataDir(), cfg.GetTempDir()} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
