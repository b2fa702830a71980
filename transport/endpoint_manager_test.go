package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRotatingTransport lets tests control which candidate URLs connect
// successfully during rotation without standing up real listeners for all
// of them.
type fakeRotatingTransport struct {
	mu        sync.Mutex
	unreach   map[string]bool
	connected []string
}

func (f *fakeRotatingTransport) TryConnect(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreach[url] {
		return assertErr("unreachable: " + url)
	}
	return nil
}

func (f *fakeRotatingTransport) UpdateClient(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, url)
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestURLRotatorRotateURL_NeverReturnsSameURLTwiceInARow(t *testing.T) {
	t.Parallel()

	r := newURLRotator("a", []string{"b", "c", "d"})
	fake := &fakeRotatingTransport{unreach: map[string]bool{}}

	seen := []string{r.ActiveURL()}
	for i := 0; i < 3; i++ {
		prev := r.ActiveURL()
		err := r.RotateURL(context.Background(), fake)
		require.NoError(t, err)
		require.NotEqual(t, prev, r.ActiveURL())
		seen = append(seen, r.ActiveURL())
	}
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, seen)
}

func TestURLRotatorRotateURL_SkipsUnreachableAndRetainsInFallback(t *testing.T) {
	t.Parallel()

	r := newURLRotator("a", []string{"b", "c"})
	fake := &fakeRotatingTransport{unreach: map[string]bool{"b": true}}

	err := r.RotateURL(context.Background(), fake)
	require.Error(t, err)
	assert.Equal(t, "a", r.ActiveURL())
	assert.ElementsMatch(t, []string{"b", "c"}, r.FallbackURLs())

	fake.unreach = map[string]bool{}
	err = r.RotateURL(context.Background(), fake)
	require.NoError(t, err)
	assert.NotEqual(t, "a", r.ActiveURL())
}

func TestURLRotatorRotateURL_NoFallbacksErrors(t *testing.T) {
	t.Parallel()

	r := newURLRotator("only", nil)
	fake := &fakeRotatingTransport{}
	err := r.RotateURL(context.Background(), fake)
	require.Error(t, err)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindURLRotation, terr.Kind)
}

func TestEndpointManager_RotatesOn429ThenSucceeds(t *testing.T) {
	t.Parallel()

	var badCalls int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&badCalls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer good.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	mgr := NewEndpointManager(client, bad.URL, []string{good.URL})
	mgr.SetRetryPolicy(RetryPolicy{Base: 2, Min: time.Millisecond, Max: time.Millisecond, MaxRetries: 0, Jitter: JitterNone}, DefaultRetryableStrategy)

	fake := &fakeRotatingTransport{}
	result, err := mgr.SendRawRequest(context.Background(), fake, "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, `"0x1"`, string(result))
	assert.Equal(t, good.URL, mgr.ActiveURL())
}

func TestEndpointManager_AllFallbacksFailAggregatesError(t *testing.T) {
	t.Parallel()

	bad1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad1.Close()
	bad2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad2.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	mgr := NewEndpointManager(client, bad1.URL, []string{bad2.URL})
	mgr.SetRetryPolicy(RetryPolicy{Base: 2, Min: time.Millisecond, Max: time.Millisecond, MaxRetries: 0, Jitter: JitterNone}, DefaultRetryableStrategy)

	fake := &fakeRotatingTransport{}
	_, err := mgr.SendRawRequest(context.Background(), fake, "eth_blockNumber", nil)
	require.Error(t, err)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindHTTP, terr.Kind)
}

func TestEndpointManager_RetriesWithBackoffBeforeGivingUp(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	orig := timeAfter
	defer func() { timeAfter = orig }()
	timeAfter = func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	client := &http.Client{Timeout: 5 * time.Second}
	mgr := NewEndpointManager(client, srv.URL, nil)
	mgr.SetRetryPolicy(RetryPolicy{Base: 2, Min: time.Millisecond, Max: time.Millisecond, MaxRetries: 3, Jitter: JitterFull}, DefaultRetryableStrategy)

	fake := &fakeRotatingTransport{}
	_, err := mgr.SendRawRequest(context.Background(), fake, "eth_blockNumber", nil)
	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestEndpointManager_SetRateLimit_ThrottlesRequests(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	mgr := NewEndpointManager(client, srv.URL, nil)
	mgr.SetRateLimit(2, 1)

	fake := &fakeRotatingTransport{}
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := mgr.SendRawRequest(context.Background(), fake, "eth_blockNumber", nil)
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond, "third request should have waited for the limiter to refill")
}

func TestEndpointManager_DefaultRateUnlimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	mgr := NewEndpointManager(client, srv.URL, nil)

	fake := &fakeRotatingTransport{}
	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := mgr.SendRawRequest(context.Background(), fake, "eth_blockNumber", nil)
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
