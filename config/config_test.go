package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Default().DBPath, cfg.DBPath)
	require.Equal(t, Default().MaxWorkers, cfg.MaxWorkers)
}

func TestLoadFillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		db_path: "custom.db",
		max_workers: 8,
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "custom.db", cfg.DBPath)
	require.Equal(t, 8, cfg.MaxWorkers)
	// unset fields come from the defaults layer
	require.Equal(t, Default().SourcingURLColumn, cfg.SourcingURLColumn)
	require.Equal(t, Default().BaseOutputDir, cfg.BaseOutputDir)
}

func TestLoadStopFileEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{stop_file: "from-config"}`), 0o644))
	t.Setenv("DRP_STOP_FILE", "/tmp/stop-now")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/stop-now", cfg.StopFile)
}

func TestLoadGWDAEmailFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		datalumos_username: "rescuer@example.org",
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "rescuer@example.org", cfg.GWDAEmail)
}

func TestDurationAccessors(t *testing.T) {
	cfg := Config{
		DownloadTimeoutMs:       1500,
		UploadTimeoutMs:         2500,
		SourcingFetchTimeoutSec: 10,
	}
	require.Equal(t, 1500*time.Millisecond, cfg.DownloadTimeout())
	require.Equal(t, 2500*time.Millisecond, cfg.UploadTimeout())
	require.Equal(t, 10*time.Second, cfg.SourcingFetchTimeout())
}
