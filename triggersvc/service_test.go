package triggersvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/models"
)

type mapLookup map[string]*models.Trigger

func (m mapLookup) Trigger(name string) (*models.Trigger, bool) {
	t, ok := m[name]
	return t, ok
}

func TestService_Execute_InterpolatesAndDispatchesWebhook(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	lookup := mapLookup{
		"notify-ops": {
			Name: "notify-ops",
			Type: models.TriggerWebhook,
			Message: models.NotificationMessage{
				Title:        "Match on ${monitor_name}",
				BodyTemplate: "tx ${transaction_hash}",
			},
			Webhook: &models.WebhookConfig{URL: server.URL, Method: http.MethodPost},
		},
	}

	svc := NewService(lookup)
	err := svc.Execute(context.Background(), []string{"notify-ops"}, map[string]string{
		"monitor_name":     "big-transfers",
		"transaction_hash": "0xabc",
	})
	require.NoError(t, err)
	require.Equal(t, "Match on big-transfers", received["title"])
	require.Equal(t, "tx 0xabc", received["body"])
}

func TestService_Execute_UnknownTriggerReturnsError(t *testing.T) {
	svc := NewService(mapLookup{})
	err := svc.Execute(context.Background(), []string{"missing"}, map[string]string{})
	require.Error(t, err)
}

func TestService_Execute_OneFailureDoesNotStopOthers(t *testing.T) {
	var gotSecond bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecond = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	lookup := mapLookup{
		"broken": {
			Name:    "broken",
			Type:    models.TriggerWebhook,
			Webhook: &models.WebhookConfig{URL: "", Method: http.MethodPost},
		},
		"ok": {
			Name:    "ok",
			Type:    models.TriggerWebhook,
			Webhook: &models.WebhookConfig{URL: server.URL, Method: http.MethodPost},
		},
	}

	svc := NewService(lookup)
	err := svc.Execute(context.Background(), []string{"broken", "ok"}, map[string]string{})
	require.Error(t, err)
	require.True(t, gotSecond)
}

func TestService_Execute_MissingConfigForTypeReturnsError(t *testing.T) {
	lookup := mapLookup{
		"slack-no-config": {
			Name: "slack-no-config",
			Type: models.TriggerSlack,
		},
	}
	svc := NewService(lookup)
	err := svc.Execute(context.Background(), []string{"slack-no-config"}, map[string]string{})
	require.Error(t, err)
}

type recordedEvent struct {
	identifier, message, kind string
}

type fakeAuditRecorder struct {
	events []recordedEvent
}

func (f *fakeAuditRecorder) Event(identifier, message, kind string) error {
	f.events = append(f.events, recordedEvent{identifier, message, kind})
	return nil
}

func TestService_Execute_RecordsAuditEventOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	lookup := mapLookup{
		"ok": {Name: "ok", Type: models.TriggerWebhook, Webhook: &models.WebhookConfig{URL: server.URL, Method: http.MethodPost}},
	}
	recorder := &fakeAuditRecorder{}
	svc := NewService(lookup)
	svc.SetAuditRecorder(recorder)

	err := svc.Execute(context.Background(), []string{"ok"}, map[string]string{"execution_id": "exec-1"})
	require.NoError(t, err)
	require.Len(t, recorder.events, 1)
	require.Equal(t, "ok", recorder.events[0].identifier)
	require.Equal(t, "success", recorder.events[0].kind)
}

func TestService_Execute_RecordsAuditEventOnFailureWithoutEscalatingIt(t *testing.T) {
	lookup := mapLookup{
		"broken": {Name: "broken", Type: models.TriggerWebhook, Webhook: &models.WebhookConfig{URL: "", Method: http.MethodPost}},
	}
	recorder := &fakeAuditRecorder{}
	svc := NewService(lookup)
	svc.SetAuditRecorder(recorder)

	err := svc.Execute(context.Background(), []string{"broken"}, map[string]string{"execution_id": "exec-2"})
	require.Error(t, err)
	require.Len(t, recorder.events, 1)
	require.Equal(t, "broken", recorder.events[0].identifier)
	require.Equal(t, "failure", recorder.events[0].kind)
}

func TestService_Execute_WithoutAuditRecorderDoesNotPanic(t *testing.T) {
	svc := NewService(mapLookup{})
	err := svc.Execute(context.Background(), []string{"missing"}, map[string]string{})
	require.Error(t, err)
}
