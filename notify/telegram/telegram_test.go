package telegram

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/models"
)

func TestNew_RejectsMissingConfig(t *testing.T) {
	_, err := New(models.TelegramConfig{})
	require.Error(t, err)
}

func TestSink_SendPostsFormEncodedMessage(t *testing.T) {
	var gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := New(models.TelegramConfig{BotToken: "tok123", ChatID: "42"})
	require.NoError(t, err)
	sink.base = server.URL

	require.NoError(t, sink.Send("Alert", "body text"))
	require.Equal(t, "/bottok123/sendMessage", gotPath)
	require.Contains(t, string(gotBody), "chat_id=42")
	require.Contains(t, string(gotBody), "Alert")
}
