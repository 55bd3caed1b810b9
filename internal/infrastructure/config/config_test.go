package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8765", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Storage config resolves later
	assert.Empty(t, cfg.Storage.DataDir)
	assert.Empty(t, cfg.Storage.DownloadDir)

	// Catalog config
	assert.Equal(t, "https://api.github.com", cfg.Catalog.GitHubAPI)
	assert.Equal(t, "Smallzoamz/Bonchon-Studio", cfg.Catalog.LauncherRepo)

	// Transfer config
	assert.Equal(t, 30*time.Second, cfg.Transfer.HeaderTimeout.Duration)
	assert.Equal(t, 10, cfg.Transfer.MaxRedirects)

	// Install config
	assert.Equal(t, ".exe", cfg.Install.ExecutableExt)
	assert.Equal(t, 5, cfg.Install.DiscoveryDepth)

	// Uninstall config
	assert.Equal(t, 2, cfg.Uninstall.Retries)
	assert.Equal(t, time.Second, cfg.Uninstall.RetryDelay.Duration)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8765", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "0.0.0.0",
		"LAUNCHER_DATA_DIR":       "/var/lib/launcher",
		"CATALOG_URL":             "http://catalog.local/apps.yaml",
		"GITHUB_RPS":              "2.5",
		"TRANSFER_HEADER_TIMEOUT": "5s",
		"INSTALL_EXECUTABLE_EXT":  ".bin",
		"UNINSTALL_RETRIES":       "4",
		"UNINSTALL_RETRY_DELAY":   "250ms",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_ENABLED":      "false",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/var/lib/launcher", cfg.Storage.DataDir)
	assert.Equal(t, "http://catalog.local/apps.yaml", cfg.Catalog.URL)
	assert.Equal(t, 2.5, cfg.Catalog.RequestsPerSec)
	assert.Equal(t, 5*time.Second, cfg.Transfer.HeaderTimeout.Duration)
	assert.Equal(t, ".bin", cfg.Install.ExecutableExt)
	assert.Equal(t, 4, cfg.Uninstall.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Uninstall.RetryDelay.Duration)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)

	// Untouched values keep defaults
	assert.Equal(t, 10, cfg.Transfer.MaxRedirects)
	assert.Equal(t, 5, cfg.Install.DiscoveryDepth)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("UNINSTALL_SETTLE", "soon")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 1500*time.Millisecond, cfg.Uninstall.SettleDelay.Duration)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.toml")
	content := `
[server]
port = "7000"

[install]
executable_ext = ".AppImage"
tick = "50ms"

[uninstall]
retries = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv(FileEnv, path)
	t.Setenv("UNINSTALL_RETRIES", "1")

	cfg, err := Load()
	require.NoError(t, err)

	// File values
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, ".AppImage", cfg.Install.ExecutableExt)
	assert.Equal(t, 50*time.Millisecond, cfg.Install.TickInterval.Duration)

	// Environment wins over the file
	assert.Equal(t, 1, cfg.Uninstall.Retries)

	// Defaults survive for keys absent from the file
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5, cfg.Install.DiscoveryDepth)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "malformed toml", content: "[server\nport = 1"},
		{name: "bad duration", content: "[transfer]\nheader_timeout = \"forever\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "launcher.toml")
			if !tt.missing {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			}

			err := LoadFile(path, Default())
			assert.Error(t, err)
		})
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
