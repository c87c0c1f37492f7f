package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("MODTRACKER_SERVER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadClient(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.False(t, cfg.LoggedIn())
}

func TestLoadClient_SaveRoundTrip(t *testing.T) {
	t.Setenv("MODTRACKER_SERVER", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	cfg.ServerURL = "http://tracker.local"
	cfg.AccessToken = "tok"
	cfg.UserID = "u-1"
	cfg.PollInterval = 20 * time.Second
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://tracker.local", loaded.ServerURL)
	assert.Equal(t, 20*time.Second, loaded.PollInterval)
	assert.True(t, loaded.LoggedIn())
}

func TestLoadClient_ClampsIntervals(t *testing.T) {
	t.Setenv("MODTRACKER_SERVER", "")
	tests := []struct {
		name     string
		yaml     string
		wantPoll time.Duration
	}{
		{name: "too fast", yaml: "poll_interval: 2s\n", wantPoll: MinPollInterval},
		{name: "too slow", yaml: "poll_interval: 5m\n", wantPoll: MaxPollInterval},
		{name: "in range", yaml: "poll_interval: 25s\n", wantPoll: 25 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			cfg, err := LoadClient(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPoll, cfg.PollInterval)
			assert.Equal(t, time.Second, cfg.TickInterval)
		})
	}
}

func TestLoadClient_EnvOverridesServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: http://from-file\n"), 0o600))
	t.Setenv("MODTRACKER_SERVER", "http://from-env")

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.ServerURL)
}
