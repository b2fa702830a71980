// Package webhook implements the generic JSON webhook trigger, POSTing
// {title, body} with an optional HMAC-SHA256 signature header. Grounded
// on the teacher's communications/slack wiring style (plain net/http POST
// of a JSON payload to a configured URL).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/thrasher-corp/chainmonitor/common/crypto"
	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
)

// payload is the JSON body POSTed to the configured URL.
type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Sink delivers notifications via a generic HTTP webhook.
type Sink struct {
	cfg    models.WebhookConfig
	client *http.Client
}

func New(cfg models.WebhookConfig) (*Sink, error) {
	if cfg.URL == "" {
		return nil, notify.ConfigError("webhook", "missing url")
	}
	return &Sink{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}, nil
}

func (s *Sink) Send(title, body string) error {
	return s.SendContext(context.Background(), title, body)
}

func (s *Sink) SendContext(ctx context.Context, title, body string) error {
	raw, err := json.Marshal(payload{Title: title, Body: body})
	if err != nil {
		return notify.DeliveryError("webhook", "marshaling payload", err)
	}

	method := s.cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return notify.DeliveryError("webhook", "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}
	if s.cfg.SigningKey != "" {
		req.Header.Set("X-Signature-256", crypto.SignHMACSHA256(s.cfg.SigningKey, raw))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return notify.DeliveryError("webhook", "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return notify.DeliveryError("webhook", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
}
