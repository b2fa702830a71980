package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorRoundTrip(t *testing.T) {
	t.Parallel()

	expr := "value > 1000"
	m := Monitor{
		Name:     "transfers",
		Networks: []string{"ethereum_mainnet"},
		Addresses: []AddressWithABI{
			{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
		},
		MatchConditions: MatchConditions{
			Events: []EventCondition{
				{Signature: "Transfer(address,address,uint256)", Expression: &expr},
			},
		},
		Triggers: []string{"slack-alerts"},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var roundTripped Monitor
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	assert.Equal(t, m, roundTripped)
}

func TestMonitorWithoutABIs(t *testing.T) {
	t.Parallel()

	abi := map[string]interface{}{"type": "function"}
	m := Monitor{
		Name: "watch",
		Addresses: []AddressWithABI{
			{Address: "0xabc", ABI: abi},
		},
	}

	stripped := m.WithoutABIs()
	require.Len(t, stripped.Addresses, 1)
	assert.Nil(t, stripped.Addresses[0].ABI)
	assert.NotNil(t, m.Addresses[0].ABI, "original monitor must be unmodified")
}

func TestMonitorAppliesToNetwork(t *testing.T) {
	t.Parallel()
	m := Monitor{Networks: []string{"a", "b"}}
	assert.True(t, m.AppliesToNetwork("a"))
	assert.False(t, m.AppliesToNetwork("c"))
}

func TestMonitorIsActive(t *testing.T) {
	t.Parallel()
	m := Monitor{Paused: false}
	assert.True(t, m.IsActive())
	m.Paused = true
	assert.False(t, m.IsActive())
}

func TestNetworkActiveRPCURLs(t *testing.T) {
	t.Parallel()
	n := Network{
		RPCURLs: []RPCURL{
			{URL: "https://a", Type: RPCURLTypeRPC, Weight: 50},
			{URL: "https://b", Type: RPCURLTypeRPC, Weight: 100},
			{URL: "https://zero", Type: RPCURLTypeRPC, Weight: 0},
			{URL: "wss://c", Type: RPCURLTypeWSRPC, Weight: 80},
		},
	}

	rpc := n.ActiveRPCURLs(RPCURLTypeRPC)
	require.Len(t, rpc, 2)
	assert.Equal(t, "https://b", rpc[0].URL)
	assert.Equal(t, "https://a", rpc[1].URL)

	ws := n.ActiveRPCURLs(RPCURLTypeWSRPC)
	require.Len(t, ws, 1)
	assert.Equal(t, "wss://c", ws[0].URL)
}

func TestNetworkRateLimit(t *testing.T) {
	t.Parallel()

	unset := Network{}
	_, ok := unset.RateLimit()
	assert.False(t, ok)

	rps := 5.0
	withLimit := Network{MaxRequestsPerSec: &rps}
	got, ok := withLimit.RateLimit()
	assert.True(t, ok)
	assert.Equal(t, 5.0, got)

	zero := 0.0
	withZero := Network{MaxRequestsPerSec: &zero}
	_, ok = withZero.RateLimit()
	assert.False(t, ok)
}
