package webhook

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/models"
)

func TestNew_RejectsMissingURL(t *testing.T) {
	_, err := New(models.WebhookConfig{})
	require.Error(t, err)
}

func TestSink_SendPostsJSONBodyWithSignature(t *testing.T) {
	var gotBody []byte
	var gotSig string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := New(models.WebhookConfig{URL: server.URL, SigningKey: "secret"})
	require.NoError(t, err)

	require.NoError(t, sink.Send("Alert", "something happened"))
	require.Contains(t, string(gotBody), "Alert")
	require.Contains(t, string(gotBody), "something happened")
	require.Regexp(t, "^sha256=[0-9a-f]{64}$", gotSig)
}

func TestSink_SendErrorsOnNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink, err := New(models.WebhookConfig{URL: server.URL})
	require.NoError(t, err)
	require.Error(t, sink.Send("x", "y"))
}
