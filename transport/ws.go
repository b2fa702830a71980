package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thrasher-corp/chainmonitor/models"
)

// WSConfig holds the WebSocket carrier's recognized options (spec.md §4.2).
type WSConfig struct {
	MaxReconnectAttempts int
	ConnectionTimeout    time.Duration
	ReconnectTimeout     time.Duration
	MessageTimeout       time.Duration
}

// DefaultWSConfig mirrors the HTTP carrier's bounds where the spec gives no
// WebSocket-specific default.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		MaxReconnectAttempts: 3,
		ConnectionTimeout:    20 * time.Second,
		ReconnectTimeout:     2 * time.Second,
		MessageTimeout:       30 * time.Second,
	}
}

type wsPending struct {
	result json.RawMessage
	rpcErr *RPCError
	err    error
}

// WSTransport is the WebSocket JSON-RPC carrier. Unlike HTTPTransport it
// holds a single live connection at a time; requests are correlated to
// responses by JSON-RPC id rather than by request/response pairing on the
// wire (spec.md §4.2).
type WSTransport struct {
	*urlRotator
	cfg WSConfig
	ids idCounter

	connMu  sync.Mutex
	conn    *websocket.Conn
	healthy bool
	done    chan struct{}

	pendingMu sync.Mutex
	pending   map[uint64]chan wsPending
}

// NewWSTransport probes every "websocket"-typed RPC URL in descending weight
// order, opens a persistent connection to the first reachable one, and
// keeps the rest as fallbacks in original relative order.
func NewWSTransport(ctx context.Context, network *models.Network, cfg WSConfig) (*WSTransport, error) {
	urls := network.ActiveRPCURLs(models.RPCURLTypeWSRPC)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no valid websocket RPC URLs configured for network %s", network.Slug)
	}

	t := &WSTransport{
		cfg:     cfg,
		pending: make(map[uint64]chan wsPending),
	}

	var activeURL string
	fallback := make([]string, 0, len(urls)-1)
	for _, u := range urls {
		if activeURL == "" && t.dialProbe(ctx, u.URL) == nil {
			activeURL = u.URL
			continue
		}
		if activeURL != "" {
			fallback = append(fallback, u.URL)
		}
	}
	if activeURL == "" {
		return nil, fmt.Errorf("all websocket RPC URLs failed to connect for network %s", network.Slug)
	}

	t.urlRotator = newURLRotator(activeURL, fallback)
	if err := t.UpdateClient(ctx, activeURL); err != nil {
		return nil, err
	}
	return t, nil
}

// dialProbe verifies a URL is reachable without keeping the connection,
// used both at construction time and by TryConnect during rotation.
func (t *WSTransport) dialProbe(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: t.timeoutOr20s()}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (t *WSTransport) timeoutOr20s() time.Duration {
	if t.cfg.ConnectionTimeout > 0 {
		return t.cfg.ConnectionTimeout
	}
	return 20 * time.Second
}

// CurrentURL implements BlockchainTransport.
func (t *WSTransport) CurrentURL(ctx context.Context) string { return t.ActiveURL() }

// SetRetryPolicy implements BlockchainTransport. The WebSocket carrier
// rotates on connection loss rather than retrying individual requests, so
// this is unsupported (spec.md §4.2).
func (t *WSTransport) SetRetryPolicy(RetryPolicy, RetryableStrategy) error {
	return &ErrNotImplemented{Op: "WSTransport.SetRetryPolicy"}
}

// UpdateEndpointManagerClient implements BlockchainTransport, also
// unsupported for the same reason.
func (t *WSTransport) UpdateEndpointManagerClient(interface{}) error {
	return &ErrNotImplemented{Op: "WSTransport.UpdateEndpointManagerClient"}
}

// TryConnect implements RotatingTransport: a throwaway dial to confirm
// liveness before committing to the candidate URL.
func (t *WSTransport) TryConnect(ctx context.Context, url string) error {
	return t.dialProbe(ctx, url)
}

// UpdateClient implements RotatingTransport: opens a persistent connection
// to url, starts its read loop, and closes the previous connection if any.
func (t *WSTransport) UpdateClient(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: t.timeoutOr20s()}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	conn.SetPongHandler(func(string) error { return nil })
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	t.connMu.Lock()
	old := t.conn
	oldDone := t.done
	t.conn = conn
	t.healthy = true
	t.done = make(chan struct{})
	done := t.done
	t.connMu.Unlock()

	if old != nil {
		old.Close()
	}
	if oldDone != nil {
		close(oldDone)
	}

	go t.readLoop(conn, done)
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.markUnhealthy()
			t.failAllPending(NewNetworkError(err))
			return
		}

		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}

		t.pendingMu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.pendingMu.Unlock()
		if !ok {
			continue
		}
		ch <- wsPending{result: resp.Result, rpcErr: resp.Error}
	}
}

func (t *WSTransport) markUnhealthy() {
	t.connMu.Lock()
	t.healthy = false
	t.connMu.Unlock()
}

func (t *WSTransport) failAllPending(err error) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	for id, ch := range t.pending {
		ch <- wsPending{err: err}
		delete(t.pending, id)
	}
}

// SendRawRequest implements BlockchainTransport: writes a JSON-RPC request
// on the live connection and waits for the matching id, bounded by
// message_timeout. On a network failure or timeout it rotates to a
// fallback URL, up to max_reconnect_attempts, pausing reconnect_timeout
// between attempts.
func (t *WSTransport) SendRawRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	attempts := t.cfg.MaxReconnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := t.sendOnce(ctx, method, params)
		if err == nil {
			return result, nil
		}
		lastErr = err

		rotated, rerr := t.ShouldAttemptRotation(ctx, t, false, 0, true)
		if rerr != nil {
			return nil, rerr
		}
		if !rotated {
			break
		}
		if t.cfg.ReconnectTimeout > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timeAfter(t.cfg.ReconnectTimeout):
			}
		}
	}
	return nil, NewNetworkError(lastErr)
}

func (t *WSTransport) sendOnce(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := t.ids.next()
	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewRequestSerializationError(err)
	}

	ch := make(chan wsPending, 1)
	t.pendingMu.Lock()
	t.pending[id] = ch
	t.pendingMu.Unlock()

	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("no active websocket connection")
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return nil, err
	}

	timeout := t.cfg.MessageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-ctx.Done():
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-timeAfter(timeout):
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return nil, fmt.Errorf("timed out waiting for response to request %d", id)
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return ExtractResult(&Response{ID: id, Result: res.result, Error: res.rpcErr})
	}
}

// Close tears down the active connection and its read loop.
func (t *WSTransport) Close() error {
	t.connMu.Lock()
	conn := t.conn
	done := t.done
	t.conn = nil
	t.connMu.Unlock()
	if done != nil {
		close(done)
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
