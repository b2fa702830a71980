package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/thrasher-corp/chainmonitor/models"
)

// HTTPTransport is the HTTP JSON-RPC carrier (spec.md §4.2). It owns an
// EndpointManager for active/fallback URL bookkeeping and retry policy.
type HTTPTransport struct {
	client                 *http.Client
	manager                *EndpointManager
	testConnectionPayload  []byte
}

// NewHTTPTransport probes every RPC URL of type urlType in descending
// weight order and constructs a carrier
// whose active URL is the first reachable one; the rest become fallbacks in
// their original relative order.
func NewHTTPTransport(ctx context.Context, network *models.Network, urlType models.RPCURLType, testPayload []byte) (*HTTPTransport, error) {
	urls := network.ActiveRPCURLs(urlType)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no valid %s RPC URLs configured for network %s", urlType, network.Slug)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 32,
			DialContext: (&dialer{connectTimeout: 20 * time.Second}).dialContext,
		},
	}

	payload := testPayload
	if payload == nil {
		payload, _ = json.Marshal(Request{JSONRPC: "2.0", ID: 1, Method: "net_version", Params: []interface{}{}})
	}

	t := &HTTPTransport{client: client, testConnectionPayload: payload}

	var activeURL string
	fallback := make([]string, 0, len(urls)-1)
	for _, u := range urls {
		if activeURL == "" && t.probe(ctx, u.URL) == nil {
			activeURL = u.URL
			continue
		}
		if activeURL != "" {
			fallback = append(fallback, u.URL)
		}
	}
	if activeURL == "" {
		return nil, fmt.Errorf("all %s RPC URLs failed to connect for network %s", urlType, network.Slug)
	}

	t.manager = NewEndpointManager(client, activeURL, fallback)
	if rps, ok := network.RateLimit(); ok {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		t.manager.SetRateLimit(rps, burst)
	}
	return t, nil
}

func (t *HTTPTransport) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(t.testConnectionPayload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// CurrentURL implements BlockchainTransport.
func (t *HTTPTransport) CurrentURL(ctx context.Context) string { return t.manager.ActiveURL() }

// SendRawRequest implements BlockchainTransport.
func (t *HTTPTransport) SendRawRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return t.manager.SendRawRequest(ctx, t, method, params)
}

// SetRetryPolicy implements BlockchainTransport.
func (t *HTTPTransport) SetRetryPolicy(policy RetryPolicy, strategy RetryableStrategy) error {
	t.manager.SetRetryPolicy(policy, strategy)
	return nil
}

// UpdateEndpointManagerClient implements BlockchainTransport.
func (t *HTTPTransport) UpdateEndpointManagerClient(client interface{}) error {
	c, ok := client.(*http.Client)
	if !ok {
		return fmt.Errorf("expected *http.Client")
	}
	t.client = c
	t.manager.UpdateClient(c)
	return nil
}

// TryConnect implements RotatingTransport: verifies url answers the liveness
// probe without making it active.
func (t *HTTPTransport) TryConnect(ctx context.Context, url string) error {
	return t.probe(ctx, url)
}

// UpdateClient implements RotatingTransport. For HTTP there is no
// per-endpoint connection state beyond the URL string itself, so this is a
// no-op placeholder kept for symmetry with the RotatingTransport contract;
// EndpointManager.RotateURL updates the active URL after this succeeds.
func (t *HTTPTransport) UpdateClient(ctx context.Context, url string) error {
	return nil
}

// Manager exposes the endpoint manager for tests and the client pool.
func (t *HTTPTransport) Manager() *EndpointManager { return t.manager }
