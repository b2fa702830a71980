// Package slack implements the Slack incoming-webhook trigger sink.
// Grounded on communications/slack's shape (a single configured webhook
// target that receives a JSON-formatted message) adapted to this
// package's Sink contract.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
)

type slackMessage struct {
	Text string `json:"text"`
}

// Sink delivers notifications to a Slack incoming webhook.
type Sink struct {
	cfg    models.SlackConfig
	client *http.Client
}

func New(cfg models.SlackConfig) (*Sink, error) {
	if cfg.WebhookURL == "" {
		return nil, notify.ConfigError("slack", "missing webhook_url")
	}
	return &Sink{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}, nil
}

func (s *Sink) Send(title, body string) error {
	return s.SendContext(context.Background(), title, body)
}

func (s *Sink) SendContext(ctx context.Context, title, body string) error {
	text := title
	if body != "" {
		text = fmt.Sprintf("*%s*\n%s", title, body)
	}
	raw, err := json.Marshal(slackMessage{Text: text})
	if err != nil {
		return notify.DeliveryError("slack", "marshaling payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(raw))
	if err != nil {
		return notify.DeliveryError("slack", "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return notify.DeliveryError("slack", "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return notify.DeliveryError("slack", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
}
