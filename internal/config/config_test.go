package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointConfigAway keeps a stray callsync.yaml in the working directory
// from leaking into a test.
func pointConfigAway(t *testing.T) {
	t.Helper()
	t.Setenv("CALLSYNC_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
}

// unsetenv removes a variable for the duration of the test. t.Setenv
// first, so the original value is restored on cleanup.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	pointConfigAway(t)
	t.Setenv("RECORDINGS_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://web.growthacademy.in", cfg.APIBaseURL)
	assert.Equal(t, 0, cfg.UserID)
	assert.Equal(t, 200, cfg.FetchLimit)
	assert.Equal(t, 10, cfg.UploadConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.False(t, cfg.AutoSync)
	assert.True(t, cfg.AutoRefresh)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, filepath.IsAbs(cfg.RecordingsDir))
}

func TestLoad_RequiresRecordingsDir(t *testing.T) {
	pointConfigAway(t)
	unsetenv(t, "RECORDINGS_DIR")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORDINGS_DIR")
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "callsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"recordings_dir: "+dir+"\n"+
			"api_base_url: https://staging.example.com\n"+
			"user_id: 7\n"+
			"auto_sync: true\n"+
			"fetch_limit: 50\n"), 0o600))

	t.Setenv("CALLSYNC_CONFIG", cfgPath)
	unsetenv(t, "RECORDINGS_DIR")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.RecordingsDir)
	assert.Equal(t, "https://staging.example.com", cfg.APIBaseURL)
	assert.Equal(t, 7, cfg.UserID)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, 50, cfg.FetchLimit)

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, 10, cfg.UploadConcurrency)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "callsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"recordings_dir: "+dir+"\n"+
			"user_id: 1\n"), 0o600))

	t.Setenv("CALLSYNC_CONFIG", cfgPath)
	t.Setenv("USER_ID", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.UserID)
}

func TestLoad_MalformedYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "callsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("recordings_dir: [unclosed"), 0o600))

	t.Setenv("CALLSYNC_CONFIG", cfgPath)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ValidatesBounds(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero fetch limit", key: "FETCH_LIMIT", value: "0"},
		{name: "negative concurrency", key: "UPLOAD_CONCURRENCY", value: "-3"},
		{name: "negative sync interval", key: "SYNC_INTERVAL", value: "-1m"},
		{name: "negative user id", key: "USER_ID", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pointConfigAway(t)
			t.Setenv("RECORDINGS_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
	assert.False(t, (&Config{Environment: "development"}).IsProduction())
	assert.False(t, (&Config{}).IsProduction())
}

func TestDefaultStatePath(t *testing.T) {
	path, err := DefaultStatePath()
	require.NoError(t, err)

	assert.Equal(t, "state.db", filepath.Base(path))
	assert.Equal(t, ".callsync", filepath.Base(filepath.Dir(path)))
}
