package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"github.com/thrasher-corp/chainmonitor/common/timedmutex"
)

// rotationLockTimeout bounds how long a single RotateURL call can hold
// rotationLock: TryConnect/UpdateClient dial a real network endpoint and a
// hung dial (one that does not honor ctx cancellation) must not wedge every
// future rotation attempt.
const rotationLockTimeout = 30 * time.Second

// urlRotator owns the active/fallback URL state shared by both the HTTP and
// WebSocket carriers, serializing rotation so two rotations never interleave
// (spec.md §4.1, §5).
type urlRotator struct {
	urlMu        sync.RWMutex
	activeURL    string
	fallbackURLs []string

	rotationLock *timedmutex.TimedMutex
}

func newURLRotator(activeURL string, fallbackURLs []string) *urlRotator {
	return &urlRotator{
		activeURL:    activeURL,
		fallbackURLs: append([]string(nil), fallbackURLs...),
		rotationLock: timedmutex.NewTimedMutex(rotationLockTimeout),
	}
}

// ActiveURL returns the current active endpoint.
func (r *urlRotator) ActiveURL() string {
	r.urlMu.RLock()
	defer r.urlMu.RUnlock()
	return r.activeURL
}

// FallbackURLs returns a snapshot of the current fallback list.
func (r *urlRotator) FallbackURLs() []string {
	r.urlMu.RLock()
	defer r.urlMu.RUnlock()
	return append([]string(nil), r.fallbackURLs...)
}

// RotateURL rotates to the first fallback URL that differs from the current
// active URL, verifying connectivity via transport.TryConnect before
// committing. On a failed connect attempt the candidate URL is pushed back
// onto the fallback list so a full cycle through all fallbacks is visible
// to the caller rather than silently dropped.
func (r *urlRotator) RotateURL(ctx context.Context, t RotatingTransport) error {
	r.rotationLock.LockForDuration()
	defer r.rotationLock.UnlockIfLocked()

	current := r.ActiveURL()

	r.urlMu.Lock()
	idx := -1
	for i, u := range r.fallbackURLs {
		if u != current {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.urlMu.Unlock()
		return NewURLRotationError("No fallback URLs available for rotation. Current active URL: " + current)
	}
	candidate := r.fallbackURLs[idx]
	r.fallbackURLs = append(r.fallbackURLs[:idx], r.fallbackURLs[idx+1:]...)
	r.urlMu.Unlock()

	if err := t.TryConnect(ctx, candidate); err != nil {
		r.urlMu.Lock()
		r.fallbackURLs = append(r.fallbackURLs, candidate)
		r.urlMu.Unlock()
		return NewURLRotationError("Failed to connect to new URL: " + candidate + ". Retaining it in fallback list.")
	}

	if err := t.UpdateClient(ctx, candidate); err != nil {
		r.urlMu.Lock()
		r.fallbackURLs = append(r.fallbackURLs, candidate)
		r.urlMu.Unlock()
		return NewURLRotationError("Failed to update transport client with new URL")
	}

	r.urlMu.Lock()
	r.fallbackURLs = append(r.fallbackURLs, current)
	r.activeURL = candidate
	r.urlMu.Unlock()
	return nil
}

// ShouldAttemptRotation decides whether rotation should be attempted, and if
// so, attempts it. It returns true if rotation succeeded (caller should
// retry the request against the new active URL).
func (r *urlRotator) ShouldAttemptRotation(ctx context.Context, t RotatingTransport, checkStatus bool, status int, networkErr bool) (bool, error) {
	hasFallback := len(r.FallbackURLs()) > 0
	worthRotating := networkErr || (checkStatus && ROTATE_ON_ERROR_CODES[status])
	if !hasFallback || !worthRotating {
		return false, nil
	}

	if err := r.RotateURL(ctx, t); err != nil {
		return false, NewURLRotationError("Rotation failed for URL: " + r.ActiveURL() + ": " + err.Error())
	}
	return true, nil
}

// EndpointManager is the HTTP-specific carrier built on top of urlRotator:
// it owns the pooled HTTP client and retry policy and performs JSON-RPC
// requests against the active URL (spec.md §4.1).
type EndpointManager struct {
	*urlRotator

	clientMu sync.RWMutex
	client   *http.Client

	policyMu sync.RWMutex
	policy   RetryPolicy
	strategy RetryableStrategy

	limiterMu sync.RWMutex
	limiter   *rate.Limiter

	ids idCounter
}

// NewEndpointManager creates a manager with the given active URL and an
// ordered fallback list. Outbound requests are unthrottled until
// SetRateLimit installs a limit.
func NewEndpointManager(client *http.Client, activeURL string, fallbackURLs []string) *EndpointManager {
	return &EndpointManager{
		urlRotator: newURLRotator(activeURL, fallbackURLs),
		client:     client,
		policy:     DefaultRetryPolicy(),
		strategy:   DefaultRetryableStrategy,
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
}

// SetRateLimit caps outbound JSON-RPC requests to rps requests per second,
// with bursts up to burst. A provider's documented rate limit is the usual
// source for these values; exceeding it gets an endpoint temporarily banned
// rather than merely slowed down.
func (m *EndpointManager) SetRateLimit(rps float64, burst int) {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	m.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

func (m *EndpointManager) rateLimiter() *rate.Limiter {
	m.limiterMu.RLock()
	defer m.limiterMu.RUnlock()
	return m.limiter
}

// UpdateClient swaps the HTTP client used for requests, e.g. after changing
// the retry policy.
func (m *EndpointManager) UpdateClient(client *http.Client) {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()
	m.client = client
}

// SetRetryPolicy installs a new retry policy and classifier.
func (m *EndpointManager) SetRetryPolicy(policy RetryPolicy, strategy RetryableStrategy) {
	m.policyMu.Lock()
	defer m.policyMu.Unlock()
	m.policy = policy
	if strategy != nil {
		m.strategy = strategy
	}
}

func (m *EndpointManager) currentPolicy() (RetryPolicy, RetryableStrategy) {
	m.policyMu.RLock()
	defer m.policyMu.RUnlock()
	return m.policy, m.strategy
}

func (m *EndpointManager) httpClient() *http.Client {
	m.clientMu.RLock()
	defer m.clientMu.RUnlock()
	return m.client
}

// SendRawRequest sends a JSON-RPC request to the current active URL,
// retrying transient failures per the retry policy, and rotating to a
// fallback URL when retries are exhausted and the failure is
// rotation-worthy. The loop is bounded by the number of fallback URLs: each
// rotation attempt consumes one candidate, so a full cycle terminates even
// if every fallback is unreachable.
func (m *EndpointManager) SendRawRequest(ctx context.Context, t RotatingTransport, method string, params interface{}) (json.RawMessage, error) {
	rotationsLeft := len(m.FallbackURLs())
	for {
		if err := m.rateLimiter().Wait(ctx); err != nil {
			return nil, NewNetworkError(err)
		}

		url := m.ActiveURL()

		body, err := json.Marshal(Request{
			JSONRPC: "2.0",
			ID:      m.ids.next(),
			Method:  method,
			Params:  params,
		})
		if err != nil {
			return nil, NewRequestSerializationError(err)
		}

		resp, sendErr := m.doWithRetry(ctx, url, body)
		if sendErr != nil {
			if rotationsLeft > 0 {
				rotated, rerr := m.ShouldAttemptRotation(ctx, t, false, 0, true)
				if rerr != nil {
					return nil, rerr
				}
				if rotated {
					rotationsLeft--
					continue
				}
			}
			return nil, NewNetworkError(sendErr)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if rotationsLeft > 0 {
				rotated, rerr := m.ShouldAttemptRotation(ctx, t, true, resp.StatusCode, false)
				if rerr != nil {
					return nil, rerr
				}
				if rotated {
					rotationsLeft--
					continue
				}
			}
			return nil, NewHTTPError(resp.StatusCode, url, string(respBody))
		}

		var parsed Response
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, NewResponseParseError(err)
		}
		return ExtractResult(&parsed)
	}
}

// doWithRetry performs the HTTP POST, retrying transient failures according
// to the current retry policy using full-jitter exponential backoff.
func (m *EndpointManager) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	policy, strategy := m.currentPolicy()

	b := &backoff.Backoff{
		Min:    policy.Min,
		Max:    policy.Max,
		Factor: policy.Base,
		Jitter: policy.Jitter == JitterFull,
	}

	var lastErr error
	var lastResp *http.Response
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.httpClient().Do(req)
		if err != nil {
			lastErr = err
			lastResp = nil
		} else if strategy(resp.StatusCode, nil) && attempt < policy.MaxRetries {
			resp.Body.Close()
			lastErr = nil
			lastResp = nil
		} else {
			return resp, nil
		}

		if attempt < policy.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timeAfter(b.Duration()):
			}
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}
