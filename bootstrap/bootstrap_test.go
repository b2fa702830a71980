package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/blockwatcher"
	"github.com/thrasher-corp/chainmonitor/models"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func seedConfigRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "config.json", `{"num_workers": 2}`)

	writeFile(t, filepath.Join(root, "networks"), "eth.json", `{
		"slug": "ethereum-mainnet",
		"network_type": "EVM",
		"rpc_urls": [{"url": "https://rpc.example", "type": "rpc", "weight": 100}],
		"confirmation_blocks": 12,
		"cron_schedule": "*/15 * * * * *"
	}`)

	writeFile(t, filepath.Join(root, "triggers"), "ops.json", `{
		"notify-ops": {"name": "notify-ops", "type": "Webhook", "webhook": {"url": "https://hooks.example/ops"}}
	}`)

	writeFile(t, filepath.Join(root, "monitors"), "big-transfers.json", `{
		"name": "big-transfers",
		"networks": ["ethereum-mainnet"],
		"addresses": [{"address": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}],
		"triggers": ["notify-ops"]
	}`)

	return root
}

func TestLoad_WiresRepositoriesFromConfigRoot(t *testing.T) {
	root := seedConfigRoot(t)

	m, err := Load(root)
	require.NoError(t, err)

	monitor, ok := m.monitors.Monitor("big-transfers")
	require.True(t, ok)
	require.True(t, monitor.IsActive())

	_, ok = m.networks.Network("ethereum-mainnet")
	require.True(t, ok)
}

func TestLoad_PropagatesInvalidMonitorReference(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.json", `{}`)
	writeFile(t, filepath.Join(root, "networks"), "eth.json", `{"slug": "ethereum-mainnet", "network_type": "EVM"}`)
	writeFile(t, filepath.Join(root, "triggers"), "t.json", `{}`)
	writeFile(t, filepath.Join(root, "monitors"), "m.json", `{"name": "m", "networks": ["missing"], "triggers": []}`)

	_, err := Load(root)
	require.Error(t, err)
}

func TestActiveMonitors_ExcludesPaused(t *testing.T) {
	root := seedConfigRoot(t)
	writeFile(t, filepath.Join(root, "monitors"), "paused.json", `{
		"name": "paused-one",
		"networks": ["ethereum-mainnet"],
		"triggers": ["notify-ops"],
		"paused": true
	}`)

	m, err := Load(root)
	require.NoError(t, err)

	active := m.activeMonitors()
	names := make(map[string]bool)
	for _, monitor := range active {
		names[monitor.Name] = true
	}
	require.True(t, names["big-transfers"])
	require.False(t, names["paused-one"])
}

func TestHasActiveMonitors_ChecksNetworkMembershipAndExcludesPaused(t *testing.T) {
	monitors := []models.Monitor{
		{Name: "1", Networks: []string{"ethereum-mainnet"}},
		{Name: "2", Networks: []string{"stellar-mainnet"}, Paused: true},
	}
	require.True(t, hasActiveMonitors(monitors, "ethereum-mainnet"))
	require.False(t, hasActiveMonitors(monitors, "stellar-mainnet"))
	require.False(t, hasActiveMonitors(monitors, "solana-mainnet"))
}

func TestNetworkMonitors_GroupsBySlug(t *testing.T) {
	monitors := []models.Monitor{
		{Name: "1", Networks: []string{"ethereum-mainnet"}},
		{Name: "2", Networks: []string{"ethereum-mainnet", "stellar-mainnet"}},
	}
	lookup := networkMonitors(monitors)
	require.Len(t, lookup("ethereum-mainnet"), 2)
	require.Len(t, lookup("stellar-mainnet"), 1)
	require.Empty(t, lookup("solana-mainnet"))
}

func TestLoad_WithDatabaseDriverWiresSQLStorageAndAudit(t *testing.T) {
	root := seedConfigRoot(t)
	dsn := filepath.Join(t.TempDir(), "chainmonitor.db")
	writeFile(t, root, "config.json", fmt.Sprintf(`{"num_workers": 2, "database_driver": "sqlite3", "database_dsn": %q}`, dsn))

	m, err := Load(root)
	require.NoError(t, err)

	require.NotNil(t, m.audit)
	require.IsType(t, &blockwatcher.SQLBlockStorage{}, m.storage)
}

func TestLoad_WithoutDatabaseDriverStaysInMemory(t *testing.T) {
	root := seedConfigRoot(t)

	m, err := Load(root)
	require.NoError(t, err)

	require.Nil(t, m.audit)
	require.IsType(t, &blockwatcher.InMemoryBlockStorage{}, m.storage)
}
