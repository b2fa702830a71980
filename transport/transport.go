package transport

import (
	"context"
	"encoding/json"
	"time"
)

// ROTATE_ON_ERROR_CODES lists HTTP status codes that are worth rotating away
// from rather than simply retrying against the same endpoint.
var ROTATE_ON_ERROR_CODES = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// JitterKind selects how backoff jitter is applied.
type JitterKind int

const (
	JitterNone JitterKind = iota
	JitterFull
)

// RetryPolicy parameterizes the HTTP carrier's retry middleware. It is kept
// independent of any one backoff library's types.
type RetryPolicy struct {
	Base       float64
	Min        time.Duration
	Max        time.Duration
	MaxRetries int
	Jitter     JitterKind
}

// DefaultRetryPolicy matches spec.md §4.2: exponential backoff base=2,
// bounds [250ms, 10s], full jitter, max 3 retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Base:       2,
		Min:        250 * time.Millisecond,
		Max:        10 * time.Second,
		MaxRetries: 3,
		Jitter:     JitterFull,
	}
}

// RetryableStrategy decides whether a given HTTP status/error is transient
// and worth retrying without rotating endpoints.
type RetryableStrategy func(status int, err error) bool

// DefaultRetryableStrategy retries on network errors and on the statuses in
// ROTATE_ON_ERROR_CODES (429, 500, 502, 503, 504).
func DefaultRetryableStrategy(status int, err error) bool {
	if err != nil {
		return true
	}
	return ROTATE_ON_ERROR_CODES[status]
}

// BlockchainTransport is the contract shared by every carrier.
type BlockchainTransport interface {
	// CurrentURL returns the endpoint currently in use.
	CurrentURL(ctx context.Context) string
	// SendRawRequest issues a JSON-RPC call and returns the raw `result`
	// field of the response.
	SendRawRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	// SetRetryPolicy updates the retry policy. WS carriers return
	// ErrNotImplemented.
	SetRetryPolicy(policy RetryPolicy, strategy RetryableStrategy) error
	// UpdateEndpointManagerClient swaps the underlying HTTP client. WS
	// carriers return ErrNotImplemented.
	UpdateEndpointManagerClient(client interface{}) error
}

// RotatingTransport is implemented by carriers that can be rotated between
// endpoints by the EndpointManager.
type RotatingTransport interface {
	// TryConnect verifies liveness of url without making it active.
	TryConnect(ctx context.Context, url string) error
	// UpdateClient swaps the carrier's connection so subsequent requests
	// target url.
	UpdateClient(ctx context.Context, url string) error
}

// ErrNotImplemented is returned by carrier operations the WebSocket carrier
// does not support (spec.md §4.2).
type ErrNotImplemented struct{ Op string }

func (e *ErrNotImplemented) Error() string { return e.Op + ": not implemented" }
