package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_UsesDefaultsWithNoConfigFile(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 4, settings.NumWorkers)
	require.Equal(t, "networks", settings.NetworksDir)
}

func TestLoad_OverlaysConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"num_workers": 8,
		"networks_dir": "/etc/chainmonitor/networks",
		"log_level": "debug"
	}`), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, settings.NumWorkers)
	require.Equal(t, "/etc/chainmonitor/networks", settings.NetworksDir)
	require.Equal(t, "debug", settings.LogLevel)
	require.Equal(t, "monitors", settings.MonitorsDir)
}

func TestLoad_RejectsNonPositiveWorkerCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"num_workers": 0}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ErrorsOnMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
