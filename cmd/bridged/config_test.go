package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridged.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
device = "/dev/ttyACM0"
reply_timeout = "500ms"
broker = "mqtt://broker:1883/robots"
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", cfg.Device)
	require.Equal(t, 500*time.Millisecond, cfg.ReplyTimeout)
	require.Equal(t, "mqtt://broker:1883/robots", cfg.Broker)
	// untouched keys keep their defaults
	require.Equal(t, 115200, cfg.Baud)
	require.Equal(t, 3, cfg.Attempts)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `probe_interval = "fast"`)
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `baud = -9600`)
	_, err := loadConfig(path)
	require.Error(t, err)

	path = writeConfig(t, `device = ""`)
	_, err = loadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
