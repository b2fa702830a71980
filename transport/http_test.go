package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/models"
)

func TestNewHTTPTransport_PicksHighestWeightLiveURLActive(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	dead.Close()

	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"1"}`))
	}))
	defer live.Close()

	lowWeightLive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"1"}`))
	}))
	defer lowWeightLive.Close()

	network := &models.Network{
		Slug:        "test",
		NetworkType: models.EVM,
		RPCURLs: []models.RPCURL{
			{URL: dead.URL, Type: models.RPCURLTypeRPC, Weight: 100},
			{URL: live.URL, Type: models.RPCURLTypeRPC, Weight: 50},
			{URL: lowWeightLive.URL, Type: models.RPCURLTypeRPC, Weight: 10},
		},
	}

	tr, err := NewHTTPTransport(context.Background(), network, models.RPCURLTypeRPC, nil)
	require.NoError(t, err)
	assert.Equal(t, live.URL, tr.CurrentURL(context.Background()))
	assert.ElementsMatch(t, []string{lowWeightLive.URL}, tr.Manager().FallbackURLs())
}

func TestNewHTTPTransport_ConfiguredRateLimitThrottlesRequests(t *testing.T) {
	t.Parallel()

	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"1"}`))
	}))
	defer live.Close()

	rps := 2.0
	network := &models.Network{
		Slug:        "test",
		NetworkType: models.EVM,
		RPCURLs: []models.RPCURL{
			{URL: live.URL, Type: models.RPCURLTypeRPC, Weight: 100},
		},
		MaxRequestsPerSec: &rps,
	}

	tr, err := NewHTTPTransport(context.Background(), network, models.RPCURLTypeRPC, nil)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := tr.SendRawRequest(context.Background(), "eth_blockNumber", nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestNewHTTPTransport_AllDeadErrors(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	dead.Close()

	network := &models.Network{
		Slug:        "test",
		NetworkType: models.EVM,
		RPCURLs: []models.RPCURL{
			{URL: dead.URL, Type: models.RPCURLTypeRPC, Weight: 100},
		},
	}

	_, err := NewHTTPTransport(context.Background(), network, models.RPCURLTypeRPC, nil)
	require.Error(t, err)
}

func TestHTTPTransport_ZeroWeightURLsExcluded(t *testing.T) {
	t.Parallel()

	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"1"}`))
	}))
	defer live.Close()

	network := &models.Network{
		Slug:        "test",
		NetworkType: models.EVM,
		RPCURLs: []models.RPCURL{
			{URL: "http://unused.invalid", Type: models.RPCURLTypeRPC, Weight: 0},
			{URL: live.URL, Type: models.RPCURLTypeRPC, Weight: 1},
		},
	}

	tr, err := NewHTTPTransport(context.Background(), network, models.RPCURLTypeRPC, nil)
	require.NoError(t, err)
	assert.Equal(t, live.URL, tr.CurrentURL(context.Background()))
	assert.Empty(t, tr.Manager().FallbackURLs())
}
