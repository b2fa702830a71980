// Package discord implements the Discord webhook trigger sink, identical
// in shape to notify/slack but speaking Discord's "content" message field.
package discord

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

type discordMessage struct {
	Content string `json:"content"`
}

// Sink delivers notifications to a Discord webhook.
type Sink struct {
	cfg    models.DiscordConfig
	client *http.Client
}

func New(cfg models.DiscordConfig) (*Sink, error) {
	if cfg.WebhookURL == "" {
		return nil, notify.ConfigError("discord", "missing webhook_url")
	}
	return &Sink{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}, nil
}

func (s *Sink) Send(title, body string) error {
	return s.SendContext(context.Background(), title, body)
}

func (s *Sink) SendContext(ctx context.Context, title, body string) error {
	content := title
	if body != "" {
		content = fmt.Sprintf("**%s**\n%s", title, body)
	}
	raw, err := json.Marshal(discordMessage{Content: content})
	if err != nil {
		return notify.DeliveryError("discord", "marshaling payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(raw))
	if err != nil {
		return notify.DeliveryError("discord", "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return notify.DeliveryError("discord", "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return notify.DeliveryError("discord", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
}
