// Package telegram implements the Telegram bot-API trigger sink, grounded
// on communications/telegram's bot-token + chat-id configuration shape.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
)

const apiBase = "https://api.telegram.org"

// Sink delivers notifications via the Telegram Bot API's sendMessage
// method.
type Sink struct {
	cfg    models.TelegramConfig
	client *http.Client
	base   string
}

func New(cfg models.TelegramConfig) (*Sink, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, notify.ConfigError("telegram", "missing bot_token or chat_id")
	}
	return &Sink{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}, base: apiBase}, nil
}

func (s *Sink) Send(title, body string) error {
	return s.SendContext(context.Background(), title, body)
}

func (s *Sink) SendContext(ctx context.Context, title, body string) error {
	text := title
	if body != "" {
		text = fmt.Sprintf("%s\n%s", title, body)
	}

	form := url.Values{
		"chat_id": {s.cfg.ChatID},
		"text":    {text},
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.base, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return notify.DeliveryError("telegram", "building request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return notify.DeliveryError("telegram", "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return notify.DeliveryError("telegram", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
}
